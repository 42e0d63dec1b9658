package web

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"effort-ui/internal/categorytree"
	"effort-ui/internal/pagination"
	"effort-ui/internal/qa"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	cookieName = "effortui"
	viewerKey  = "viewer"
)

// viewSession is the state behind one loaded page. Reloading the page
// starts a new one, which is what resets the tree's expansion state.
type viewSession struct {
	id    string
	owner string

	tree *categorytree.Tree
	list *pagination.Controller
	qa   *qa.Session

	mu       sync.Mutex
	lastSeen time.Time
}

func (v *viewSession) touch(now time.Time) {
	v.mu.Lock()
	v.lastSeen = now
	v.mu.Unlock()
}

func (v *viewSession) idleSince(now time.Time) time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	return now.Sub(v.lastSeen)
}

type viewStore struct {
	ttl time.Duration
	now func() time.Time

	mu    sync.Mutex
	views map[string]*viewSession
}

func newViewStore(ttl time.Duration) *viewStore {
	return &viewStore{ttl: ttl, now: time.Now, views: map[string]*viewSession{}}
}

func (s *viewStore) add(v *viewSession) {
	v.touch(s.now())
	s.mu.Lock()
	s.views[v.id] = v
	s.mu.Unlock()
}

// get returns the view only to the browser that created it.
func (s *viewStore) get(id, owner string) (*viewSession, bool) {
	id = strings.TrimSpace(id)
	if id == "" || owner == "" {
		return nil, false
	}
	s.mu.Lock()
	v, ok := s.views[id]
	s.mu.Unlock()
	if !ok || v.owner != owner {
		return nil, false
	}
	now := s.now()
	if v.idleSince(now) > s.ttl {
		s.remove(id)
		return nil, false
	}
	v.touch(now)
	return v, true
}

func (s *viewStore) remove(id string) {
	s.mu.Lock()
	delete(s.views, id)
	s.mu.Unlock()
}

// sweep drops idle views and reports how many were removed.
func (s *viewStore) sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, v := range s.views {
		if v.idleSince(now) > s.ttl {
			delete(s.views, id)
			n++
		}
	}
	return n
}

func (s *viewStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.views)
}

func (s *viewStore) sweepLoop(ctx context.Context, log *zap.Logger) {
	every := min(max(s.ttl/4, time.Second), 5*time.Minute)
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.sweep(); n > 0 {
				log.Debug("evicted idle views", zap.Int("count", n), zap.Int("remaining", s.len()))
			}
		}
	}
}

// viewer returns the browser id from the signed cookie, minting one when
// mint is set.
func (s *Server) viewer(w http.ResponseWriter, r *http.Request, mint bool) string {
	sess, err := s.cookies.Get(r, cookieName)
	if err != nil && !mint {
		return ""
	}
	if id, ok := sess.Values[viewerKey].(string); ok && id != "" {
		return id
	}
	if !mint {
		return ""
	}
	id := uuid.NewString()
	sess.Values[viewerKey] = id
	sess.Options.Secure = r.TLS != nil
	if err := sess.Save(r, w); err != nil {
		s.log.Warn("could not save session cookie", zap.Error(err))
	}
	return id
}

func (s *Server) newView(owner string) *viewSession {
	cfg := s.cfgSnapshot()
	id := uuid.NewString()
	log := s.log.With(zap.String("view", id))
	v := &viewSession{
		id:    id,
		owner: owner,
		tree:  categorytree.New(cfg.Backend, log),
		list:  pagination.New(cfg.Backend, cfg.PageSize, log),
		qa:    qa.NewSession(cfg.Backend, log),
	}
	v.tree.ResetExpansion()
	s.views.add(v)
	return v
}

type pageVM struct {
	Now        string
	View       string
	BackendURL string
	PageSize   int
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	owner := s.viewer(w, r, true)
	v := s.newView(owner)
	s.log.Debug("page view created", zap.String("view", v.id))

	cfg := s.cfgSnapshot()
	s.writeHTMLTemplate(w, "page.html", pageVM{
		Now:        time.Now().Format(time.RFC3339),
		View:       v.id,
		BackendURL: cfg.BackendURL,
		PageSize:   cfg.PageSize,
	})
}
