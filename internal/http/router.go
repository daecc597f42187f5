package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Halls       *HallHandler
	Blocks      *BlockHandler
	Trainings   *TrainingHandler
	Bookings    *BookingHandler
	Attendance  *AttendanceHandler
	Nominations *NominationHandler
	Health      http.Handler
	Metrics     http.Handler
	// Identity guards every API route. Health and metrics stay open.
	Identity    func(http.Handler) http.Handler
	ScanLimiter *ScanLimiter
	Middleware  []func(http.Handler) http.Handler
}

// pathSegments splits the path after prefix into its non-empty segments.
func pathSegments(path, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}

func NewRouter(cfg RouterConfig) http.Handler {
	api := http.NewServeMux()

	if cfg.Halls != nil {
		api.HandleFunc("/halls", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Halls.List(w, r)
			case http.MethodPost:
				cfg.Halls.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		api.HandleFunc("/halls/", func(w http.ResponseWriter, r *http.Request) {
			routeHall(cfg.Halls, w, r, pathSegments(r.URL.Path, "/halls/"))
		})
	}

	if cfg.Blocks != nil {
		api.HandleFunc("/blocks", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Blocks.Create(w, r)
		})
		api.HandleFunc("/blocks/", func(w http.ResponseWriter, r *http.Request) {
			segments := pathSegments(r.URL.Path, "/blocks/")
			if len(segments) != 1 {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodDelete {
				methodNotAllowed(w, http.MethodDelete)
				return
			}
			cfg.Blocks.Delete(w, r, segments[0])
		})
	}

	if cfg.Trainings != nil {
		api.HandleFunc("/trainings", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Trainings.List(w, r)
			case http.MethodPost:
				cfg.Trainings.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		api.HandleFunc("/trainings/", func(w http.ResponseWriter, r *http.Request) {
			routeTraining(cfg, w, r, pathSegments(r.URL.Path, "/trainings/"))
		})
	}

	if cfg.Attendance != nil {
		var scan http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Attendance.Scan(w, r)
		})
		if cfg.ScanLimiter != nil {
			scan = LimitScans(cfg.ScanLimiter, cfg.Attendance.logger)(scan)
		}
		api.Handle("/attendance/scan", scan)
		api.HandleFunc("/attendance/", func(w http.ResponseWriter, r *http.Request) {
			segments := pathSegments(r.URL.Path, "/attendance/")
			var participantID string
			switch {
			case len(segments) == 1 && segments[0] == "my":
			case len(segments) == 2 && segments[0] == "participants":
				participantID = segments[1]
			default:
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Attendance.History(w, r, participantID)
		})
	}

	if cfg.Bookings != nil {
		api.HandleFunc("/requests", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Bookings.List(w, r)
			case http.MethodPost:
				cfg.Bookings.Submit(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		api.HandleFunc("/requests/", func(w http.ResponseWriter, r *http.Request) {
			segments := pathSegments(r.URL.Path, "/requests/")
			switch {
			case len(segments) == 1:
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Bookings.Get(w, r, segments[0])
			case len(segments) == 2 && (segments[1] == "approve" || segments[1] == "reject"):
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				if segments[1] == "approve" {
					cfg.Bookings.Approve(w, r, segments[0])
					return
				}
				cfg.Bookings.Reject(w, r, segments[0])
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Nominations != nil {
		api.HandleFunc("/nominations", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Nominations.Nominate(w, r)
		})
		api.HandleFunc("/nominations/", func(w http.ResponseWriter, r *http.Request) {
			segments := pathSegments(r.URL.Path, "/nominations/")
			if len(segments) != 2 || segments[1] != "decision" {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Nominations.Decide(w, r, segments[0])
		})
		api.HandleFunc("/participants/busy", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Nominations.Busy(w, r)
		})
	}

	var protected http.Handler = api
	if cfg.Identity != nil {
		protected = cfg.Identity(api)
	}

	root := http.NewServeMux()
	if cfg.Health != nil {
		root.Handle("/healthz", cfg.Health)
	}
	if cfg.Metrics != nil {
		root.Handle("/metrics", cfg.Metrics)
	}
	root.Handle("/", protected)

	var handler http.Handler = root
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}

	return handler
}

func routeHall(h *HallHandler, w http.ResponseWriter, r *http.Request, segments []string) {
	if len(segments) == 0 {
		http.NotFound(w, r)
		return
	}
	if len(segments) == 1 && segments[0] == "available" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		h.Available(w, r)
		return
	}

	hallID := segments[0]
	if len(segments) == 1 {
		switch r.Method {
		case http.MethodGet:
			h.Get(w, r, hallID)
		case http.MethodPut:
			h.Update(w, r, hallID)
		case http.MethodDelete:
			h.Delete(w, r, hallID)
		default:
			methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
		}
		return
	}

	switch {
	case len(segments) == 2 && segments[1] == "availability":
		switch r.Method {
		case http.MethodGet:
			h.ListAvailability(w, r, hallID)
		case http.MethodPost:
			h.AddAvailability(w, r, hallID)
		default:
			methodNotAllowed(w, http.MethodGet, http.MethodPost)
		}
	case len(segments) == 3 && segments[1] == "availability":
		if r.Method != http.MethodDelete {
			methodNotAllowed(w, http.MethodDelete)
			return
		}
		h.RemoveAvailability(w, r, hallID, segments[2])
	case len(segments) == 2 && r.Method != http.MethodGet:
		methodNotAllowed(w, http.MethodGet)
	case len(segments) == 2 && segments[1] == "check":
		h.Check(w, r, hallID)
	case len(segments) == 2 && segments[1] == "schedule":
		h.Schedule(w, r, hallID)
	case len(segments) == 2 && segments[1] == "blocks":
		h.Blocks(w, r, hallID)
	default:
		http.NotFound(w, r)
	}
}

func routeTraining(cfg RouterConfig, w http.ResponseWriter, r *http.Request, segments []string) {
	if len(segments) == 0 {
		http.NotFound(w, r)
		return
	}
	trainingID := segments[0]
	h := cfg.Trainings

	if len(segments) == 1 {
		switch r.Method {
		case http.MethodGet:
			h.Get(w, r, trainingID)
		case http.MethodPut:
			h.Update(w, r, trainingID)
		case http.MethodDelete:
			h.Delete(w, r, trainingID)
		default:
			methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
		}
		return
	}

	switch segments[1] {
	case "status":
		if len(segments) != 2 {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		h.Transition(w, r, trainingID)
	case "session":
		if cfg.Attendance == nil {
			http.NotFound(w, r)
			return
		}
		routeSession(cfg.Attendance, w, r, trainingID, segments[2:])
	case "attendance":
		if cfg.Attendance == nil || len(segments) != 2 {
			http.NotFound(w, r)
			return
		}
		switch r.Method {
		case http.MethodGet:
			cfg.Attendance.List(w, r, trainingID)
		case http.MethodPost:
			cfg.Attendance.Manual(w, r, trainingID)
		default:
			methodNotAllowed(w, http.MethodGet, http.MethodPost)
		}
	case "nominations":
		if cfg.Nominations == nil || len(segments) != 2 {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		cfg.Nominations.ListForTraining(w, r, trainingID)
	default:
		http.NotFound(w, r)
	}
}

func routeSession(h *AttendanceHandler, w http.ResponseWriter, r *http.Request, trainingID string, rest []string) {
	if len(rest) == 0 {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		h.SessionStatus(w, r, trainingID)
		return
	}
	if len(rest) != 1 {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	switch rest[0] {
	case "start":
		h.StartSession(w, r, trainingID)
	case "stop":
		h.StopSession(w, r, trainingID)
	case "validate":
		h.ValidateToken(w, r, trainingID)
	default:
		http.NotFound(w, r)
	}
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
