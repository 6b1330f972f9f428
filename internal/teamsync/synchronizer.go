// Package teamsync owns the live view of one team's data. It opens a fixed
// set of filtered listeners keyed by team code, publishes decoded in-memory
// collections, and is the only component allowed to mutate them. Everything
// else reads snapshots or writes through the save/delete methods here.
package teamsync

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/crewdeck-app/crewdeck-backend/pkg/docstore"
	pkgerrors "github.com/crewdeck-app/crewdeck-backend/pkg/errors"
	"github.com/crewdeck-app/crewdeck-backend/pkg/logger"
	"github.com/crewdeck-app/crewdeck-backend/pkg/models"
)

// State tracks a single team attachment.
type State string

const (
	StateIdle      State = "idle"
	StateAttaching State = "attaching"
	StateLive      State = "live"
	StateDetached  State = "detached"
)

const teamCodeField = "teamCode"

// Synchronizer keeps the in-memory team collections in step with the remote
// store. Attach replaces every subscription wholesale; there is never a
// moment where listeners from two different team codes coexist.
type Synchronizer struct {
	store docstore.Store
	logg  *logger.Logger

	mu       sync.Mutex
	state    State
	teamCode string
	gen      uint64
	user     *models.TeamMember
	regs     []docstore.Registration

	members    []models.TeamMember
	gear       []models.GearItem
	patches    []models.PatchRow
	lessons    []models.TrainingLesson
	checklists []models.ChecklistTemplate
	ideas      []models.IdeaCard
	channels   []models.ChatChannel
	locations  []models.Location
	rooms      []models.Room
}

// New builds a detached synchronizer.
func New(store docstore.Store, logg *logger.Logger) (*Synchronizer, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "document store required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &Synchronizer{store: store, logg: logg, state: StateIdle}, nil
}

// Attach binds the synchronizer to the user's team. All previously open
// subscriptions are torn down first, unconditionally, even when the team code
// has not changed; switching accounts must never leak a listener across
// teams. An empty team code publishes a synthetic single-member list and
// leaves every other collection empty.
func (s *Synchronizer) Attach(ctx context.Context, user *models.TeamMember) error {
	if user == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "current user required")
	}
	code := strings.TrimSpace(user.TeamCode)

	s.mu.Lock()
	s.teardownLocked()
	s.state = StateAttaching
	s.teamCode = code
	gen := s.gen
	userCopy := *user
	s.user = &userCopy

	if code == "" {
		s.members = []models.TeamMember{userCopy}
		s.state = StateLive
		s.mu.Unlock()
		s.logg.Info(ctx, "attached without team code, publishing single-member view")
		return nil
	}
	s.mu.Unlock()

	ctx = s.logg.WithTeamCode(ctx, code)
	filter := docstore.Filter{Field: teamCodeField, Value: code}

	type subscription struct {
		collection string
		handler    func(gen uint64, docs []docstore.Document)
	}
	subs := []subscription{
		{models.CollectionUsers, s.onMembers},
		{models.CollectionGear, s.onGear},
		{models.CollectionPatches, s.onPatches},
		{models.CollectionLessons, s.onLessons},
		{models.CollectionChecklists, s.onChecklists},
		{models.CollectionIdeas, s.onIdeas},
		{models.CollectionChannels, s.onChannels},
		{models.CollectionLocations, s.onLocations},
		{models.CollectionRooms, s.onRooms},
	}

	regs := make([]docstore.Registration, 0, len(subs))
	for _, sub := range subs {
		apply := sub.handler
		reg, err := s.store.Listen(ctx, sub.collection, filter, func(docs []docstore.Document) {
			apply(gen, docs)
		})
		if err != nil {
			for _, opened := range regs {
				opened.Unsubscribe()
			}
			s.mu.Lock()
			s.teardownLocked()
			s.state = StateIdle
			s.mu.Unlock()
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "register "+sub.collection+" listener")
		}
		regs = append(regs, reg)
	}

	s.mu.Lock()
	// A concurrent Detach or re-Attach while registering wins; drop what we
	// opened.
	if s.state != StateAttaching || s.gen != gen {
		s.mu.Unlock()
		for _, reg := range regs {
			reg.Unsubscribe()
		}
		return nil
	}
	s.regs = regs
	s.state = StateLive
	s.mu.Unlock()

	s.logg.Info(ctx, "team listeners attached")
	return nil
}

// Detach removes every open subscription and only then clears the published
// collections, so a late callback cannot repopulate state after sign-out.
func (s *Synchronizer) Detach(ctx context.Context) {
	s.mu.Lock()
	s.teardownLocked()
	s.state = StateDetached
	s.user = nil
	s.mu.Unlock()
	s.logg.Info(ctx, "team listeners detached")
}

func (s *Synchronizer) teardownLocked() {
	// Unsubscribe is asynchronous on the remote store; bumping the generation
	// invalidates any snapshot still in flight from the old listeners.
	s.gen++
	for _, reg := range s.regs {
		reg.Unsubscribe()
	}
	s.regs = nil
	s.teamCode = ""
	s.members = nil
	s.gear = nil
	s.patches = nil
	s.lessons = nil
	s.checklists = nil
	s.ideas = nil
	s.channels = nil
	s.locations = nil
	s.rooms = nil
}

// State returns the attachment state.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// TeamCode returns the currently attached team code.
func (s *Synchronizer) TeamCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.teamCode
}

// Listener callbacks. Each receives the full filtered result set, decodes
// defensively (a malformed document is dropped, never fatal) and replaces
// the published slice. The generation captured at registration gates every
// apply: a snapshot delivered after its subscription was torn down is
// discarded, so neither Detach nor a re-Attach to another team can be
// undone by a late callback.

func (s *Synchronizer) onMembers(gen uint64, docs []docstore.Document) {
	members := docstore.DecodeAll[models.TeamMember](docs)
	s.mu.Lock()
	if gen == s.gen {
		s.members = members
	}
	s.mu.Unlock()
}

func (s *Synchronizer) onGear(gen uint64, docs []docstore.Document) {
	gear := docstore.DecodeAll[models.GearItem](docs)
	s.mu.Lock()
	if gen == s.gen {
		s.gear = gear
	}
	s.mu.Unlock()
}

func (s *Synchronizer) onPatches(gen uint64, docs []docstore.Document) {
	// Patch rows stay unordered here; display order is a per-screen concern
	// over the category-filtered subset.
	patches := docstore.DecodeAll[models.PatchRow](docs)
	s.mu.Lock()
	if gen == s.gen {
		s.patches = patches
	}
	s.mu.Unlock()
}

func (s *Synchronizer) onLessons(gen uint64, docs []docstore.Document) {
	lessons := docstore.DecodeAll[models.TrainingLesson](docs)
	s.mu.Lock()
	if gen == s.gen {
		s.lessons = lessons
	}
	s.mu.Unlock()
}

func (s *Synchronizer) onChecklists(gen uint64, docs []docstore.Document) {
	checklists := docstore.DecodeAll[models.ChecklistTemplate](docs)
	s.mu.Lock()
	if gen == s.gen {
		s.checklists = checklists
	}
	s.mu.Unlock()
}

func (s *Synchronizer) onIdeas(gen uint64, docs []docstore.Document) {
	ideas := docstore.DecodeAll[models.IdeaCard](docs)
	s.mu.Lock()
	if gen == s.gen {
		s.ideas = ideas
	}
	s.mu.Unlock()
}

func (s *Synchronizer) onChannels(gen uint64, docs []docstore.Document) {
	channels := docstore.DecodeAll[models.ChatChannel](docs)
	SortChannels(channels)
	s.mu.Lock()
	if gen == s.gen {
		s.channels = channels
	}
	s.mu.Unlock()
}

func (s *Synchronizer) onLocations(gen uint64, docs []docstore.Document) {
	locations := docstore.DecodeAll[models.Location](docs)
	s.mu.Lock()
	if gen == s.gen {
		s.locations = locations
	}
	s.mu.Unlock()
}

func (s *Synchronizer) onRooms(gen uint64, docs []docstore.Document) {
	rooms := docstore.DecodeAll[models.Room](docs)
	s.mu.Lock()
	if gen == s.gen {
		s.rooms = rooms
	}
	s.mu.Unlock()
}

// SortChannels orders channels by position ascending, then name
// case-insensitively.
func SortChannels(channels []models.ChatChannel) {
	sort.SliceStable(channels, func(i, j int) bool {
		if channels[i].Position != channels[j].Position {
			return channels[i].Position < channels[j].Position
		}
		return strings.ToLower(channels[i].Name) < strings.ToLower(channels[j].Name)
	})
}

// Snapshot accessors. Each returns a copy; callers never see later mutations.

func (s *Synchronizer) Members() []models.TeamMember {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.TeamMember(nil), s.members...)
}

func (s *Synchronizer) Gear() []models.GearItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.GearItem(nil), s.gear...)
}

func (s *Synchronizer) PatchRows() []models.PatchRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.PatchRow(nil), s.patches...)
}

func (s *Synchronizer) Lessons() []models.TrainingLesson {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.TrainingLesson(nil), s.lessons...)
}

func (s *Synchronizer) Checklists() []models.ChecklistTemplate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ChecklistTemplate(nil), s.checklists...)
}

func (s *Synchronizer) Ideas() []models.IdeaCard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.IdeaCard(nil), s.ideas...)
}

func (s *Synchronizer) Channels() []models.ChatChannel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ChatChannel(nil), s.channels...)
}

func (s *Synchronizer) Locations() []models.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Location(nil), s.locations...)
}

func (s *Synchronizer) Rooms() []models.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Room(nil), s.rooms...)
}
