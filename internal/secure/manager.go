package secure

import (
	"fmt"
	"log/slog"
	"sort"
)

// Manager holds the registered secure contexts and the suite selected
// for the current connection. A manager carries per-session key state,
// so servers build one per connection.
type Manager struct {
	symmetric map[string]*SymmetricContext
	public    map[string]*PublicKeyContext
	private   map[string]*PrivateKeyContext

	// Registration order, so advertised suite lists are deterministic.
	symmetricNames []string
	pkcNames       []string

	currentSymmetric *SymmetricContext
	currentPublic    *PublicKeyContext
	currentPrivate   *PrivateKeyContext

	log *slog.Logger
}

// NewManager creates an empty manager.
func NewManager(log *slog.Logger) *Manager {
	return &Manager{
		symmetric: make(map[string]*SymmetricContext),
		public:    make(map[string]*PublicKeyContext),
		private:   make(map[string]*PrivateKeyContext),
		log:       log,
	}
}

// AddSymmetricContext registers a symmetric secure context.
func (m *Manager) AddSymmetricContext(ctx *SymmetricContext) {
	name := ctx.Name()
	m.log.Debug("adding symmetric context", "name", name)

	if _, ok := m.symmetric[name]; !ok {
		m.symmetricNames = append(m.symmetricNames, name)
	}
	m.symmetric[name] = ctx
}

// AddPKCContexts registers a public/private context pair. The two
// halves must share a name.
func (m *Manager) AddPKCContexts(pub *PublicKeyContext, priv *PrivateKeyContext) error {
	name := pub.Name()
	if name != priv.Name() {
		return fmt.Errorf("%w: %q and %q", ErrNameMismatch, name, priv.Name())
	}
	m.log.Debug("adding pkc contexts", "name", name)

	if _, ok := m.public[name]; !ok {
		m.pkcNames = append(m.pkcNames, name)
	}
	m.public[name] = pub
	m.private[name] = priv
	return nil
}

// ChooseAlgorithms intersects the client-advertised names with the
// local registries and selects the highest-priority match for the PKC
// pair and the symmetric cipher. It reports whether every slot found a
// match; on failure no selection is installed.
func (m *Manager) ChooseAlgorithms(clientPKC, clientSymmetric []string) bool {
	public := pickContext(clientPKC, m.public)
	private := pickContext(clientPKC, m.private)
	symmetric := pickContext(clientSymmetric, m.symmetric)

	if public == nil || private == nil || symmetric == nil {
		// The selection triple is all or nothing.
		m.currentPublic, m.currentPrivate, m.currentSymmetric = nil, nil, nil
		return false
	}

	m.currentPublic = *public
	m.currentPrivate = *private
	m.currentSymmetric = *symmetric

	m.log.Info("chose cryptosystems",
		"pkc", m.currentPublic.Name(),
		"symmetric", m.currentSymmetric.Name())
	return true
}

// prioritized is any context that can take part in suite selection.
type prioritized interface {
	Priority() int
}

// pickContext returns a pointer to the highest-priority local context
// whose name the client advertised, or nil when nothing matches.
func pickContext[C prioritized](clientNames []string, local map[string]C) *C {
	type match struct {
		priority int
		ctx      C
	}

	var matches []match
	for _, name := range clientNames {
		ctx, ok := local[name]
		if !ok {
			continue
		}
		matches = append(matches, match{priority: ctx.Priority(), ctx: ctx})
	}
	if len(matches) == 0 {
		return nil
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].priority < matches[j].priority
	})
	best := matches[len(matches)-1].ctx
	return &best
}

// SetAlgorithms installs the named contexts as the current selection.
// The client calls this with the names the server chose.
func (m *Manager) SetAlgorithms(pkcName, symmetricName string) error {
	public, ok := m.public[pkcName]
	if !ok {
		return fmt.Errorf("unknown pkc context %q", pkcName)
	}
	symmetric, ok := m.symmetric[symmetricName]
	if !ok {
		return fmt.Errorf("unknown symmetric context %q", symmetricName)
	}

	m.log.Info("using cryptosystems", "pkc", pkcName, "symmetric", symmetricName)

	m.currentPublic = public
	m.currentPrivate = m.private[pkcName]
	m.currentSymmetric = symmetric
	return nil
}

// Symmetric returns the selected symmetric context, or nil before a
// selection is made.
func (m *Manager) Symmetric() *SymmetricContext {
	return m.currentSymmetric
}

// PKC returns the selected public and private contexts, or nils before
// a selection is made.
func (m *Manager) PKC() (*PublicKeyContext, *PrivateKeyContext) {
	return m.currentPublic, m.currentPrivate
}

// SupportedSymmetric returns the registered symmetric context names in
// registration order.
func (m *Manager) SupportedSymmetric() []string {
	return append([]string(nil), m.symmetricNames...)
}

// SupportedPKCs returns the registered PKC context names in
// registration order.
func (m *Manager) SupportedPKCs() []string {
	return append([]string(nil), m.pkcNames...)
}

// SetMacKeys installs the MAC key into every registered context, not
// only the selected ones.
func (m *Manager) SetMacKeys(key []byte) {
	for _, ctx := range m.private {
		ctx.SetMacKey(key)
	}
	for _, ctx := range m.public {
		ctx.SetMacKey(key)
	}
	for _, ctx := range m.symmetric {
		ctx.SetMacKey(key)
	}
}
