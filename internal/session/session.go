// Package session keeps the set of open performance sessions and the modes
// they have been told about.
package session

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"codeberg.org/mutker/powerhintd/internal/errors"
	"codeberg.org/mutker/powerhintd/internal/logger"
	"codeberg.org/mutker/powerhintd/internal/power"
	"github.com/google/uuid"
)

type session struct {
	info    power.SessionInfo
	cfg     power.SessionConfig
	created time.Time
}

// Registry implements power.SessionRegistry.
type Registry struct {
	mu       sync.Mutex
	nextID   int64
	sessions map[string]*session
	modes    map[string]bool
	now      func() time.Time
	log      logger.Logger
}

func NewRegistry(log logger.Logger) *Registry {
	return &Registry{
		sessions: map[string]*session{},
		modes:    map[string]bool{},
		now:      time.Now,
		log:      log.With("session"),
	}
}

// OnModeChanged records mode as active or inactive.
func (r *Registry) OnModeChanged(mode string, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if enabled {
		r.modes[mode] = true
	} else {
		delete(r.modes, mode)
	}
}

func (r *Registry) Open(cfg power.SessionConfig) (power.SessionInfo, error) {
	if len(cfg.ThreadIDs) == 0 {
		return power.SessionInfo{}, errors.New().WithData(errors.ErrIllegalArgument, "thread ids must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	info := power.SessionInfo{ID: r.nextID, Handle: uuid.NewString()}
	threads := make([]int32, len(cfg.ThreadIDs))
	copy(threads, cfg.ThreadIDs)
	cfg.ThreadIDs = threads

	r.sessions[info.Handle] = &session{info: info, cfg: cfg, created: r.now()}

	r.log.Debug().Int64("id", info.ID).Str("handle", info.Handle).Str("tag", string(cfg.Tag)).Msg("Session opened")

	return info, nil
}

func (r *Registry) Close(handle string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[handle]
	if !ok {
		return errors.New().WithData(errors.ErrNotFound, "session "+handle)
	}
	delete(r.sessions, handle)

	r.log.Debug().Int64("id", s.info.ID).Msg("Session closed")

	return nil
}

func (r *Registry) Dump(w io.Writer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := make([]*session, 0, len(r.sessions))
	for _, s := range r.sessions {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].info.ID < list[j].info.ID })

	modes := make([]string, 0, len(r.modes))
	for m := range r.modes {
		modes = append(modes, m)
	}
	sort.Strings(modes)

	if _, err := fmt.Fprintf(w, "Sessions: %d\nActive modes: %v\n", len(list), modes); err != nil {
		return err
	}
	now := r.now()
	for _, s := range list {
		_, err := fmt.Fprintf(w, "  #%d tgid=%d uid=%d tag=%s threads=%v target=%s age=%s\n",
			s.info.ID, s.cfg.TGID, s.cfg.UID, s.cfg.Tag, s.cfg.ThreadIDs,
			s.cfg.TargetDuration, now.Sub(s.created).Round(time.Second))
		if err != nil {
			return err
		}
	}

	return nil
}
