package teamsync

import (
	"context"
	"strings"

	pkgerrors "github.com/crewdeck-app/crewdeck-backend/pkg/errors"
	"github.com/crewdeck-app/crewdeck-backend/pkg/models"
)

// Write-through mutators. Each persists the document and then optimistically
// patches the published collection; the next listener emission overwrites the
// patch with remote truth either way. All published-collection writes in the
// process funnel through this file or the listener callbacks; nothing else
// touches the slices.

func (s *Synchronizer) SaveGear(ctx context.Context, item models.GearItem) error {
	if err := s.writeThrough(ctx, models.CollectionGear, item.ID, item.TeamCode, item); err != nil {
		return err
	}
	s.mu.Lock()
	s.gear = upsert(s.gear, item, func(g models.GearItem) string { return g.ID })
	s.mu.Unlock()
	return nil
}

func (s *Synchronizer) DeleteGear(ctx context.Context, id string) error {
	if err := s.deleteThrough(ctx, models.CollectionGear, id); err != nil {
		return err
	}
	s.mu.Lock()
	s.gear = remove(s.gear, id, func(g models.GearItem) string { return g.ID })
	s.mu.Unlock()
	return nil
}

func (s *Synchronizer) SavePatchRow(ctx context.Context, row models.PatchRow) error {
	if err := s.writeThrough(ctx, models.CollectionPatches, row.ID, row.TeamCode, row); err != nil {
		return err
	}
	s.mu.Lock()
	s.patches = upsert(s.patches, row, func(r models.PatchRow) string { return r.ID })
	s.mu.Unlock()
	return nil
}

func (s *Synchronizer) DeletePatchRow(ctx context.Context, id string) error {
	if err := s.deleteThrough(ctx, models.CollectionPatches, id); err != nil {
		return err
	}
	s.mu.Lock()
	s.patches = remove(s.patches, id, func(r models.PatchRow) string { return r.ID })
	s.mu.Unlock()
	return nil
}

func (s *Synchronizer) SaveLesson(ctx context.Context, lesson models.TrainingLesson) error {
	if err := s.writeThrough(ctx, models.CollectionLessons, lesson.ID, lesson.TeamCode, lesson); err != nil {
		return err
	}
	s.mu.Lock()
	s.lessons = upsert(s.lessons, lesson, func(l models.TrainingLesson) string { return l.ID })
	s.mu.Unlock()
	return nil
}

func (s *Synchronizer) DeleteLesson(ctx context.Context, id string) error {
	if err := s.deleteThrough(ctx, models.CollectionLessons, id); err != nil {
		return err
	}
	s.mu.Lock()
	s.lessons = remove(s.lessons, id, func(l models.TrainingLesson) string { return l.ID })
	s.mu.Unlock()
	return nil
}

func (s *Synchronizer) SaveChecklist(ctx context.Context, checklist models.ChecklistTemplate) error {
	if err := s.writeThrough(ctx, models.CollectionChecklists, checklist.ID, checklist.TeamCode, checklist); err != nil {
		return err
	}
	s.mu.Lock()
	s.checklists = upsert(s.checklists, checklist, func(c models.ChecklistTemplate) string { return c.ID })
	s.mu.Unlock()
	return nil
}

func (s *Synchronizer) DeleteChecklist(ctx context.Context, id string) error {
	if err := s.deleteThrough(ctx, models.CollectionChecklists, id); err != nil {
		return err
	}
	s.mu.Lock()
	s.checklists = remove(s.checklists, id, func(c models.ChecklistTemplate) string { return c.ID })
	s.mu.Unlock()
	return nil
}

func (s *Synchronizer) SaveIdea(ctx context.Context, idea models.IdeaCard) error {
	if err := s.writeThrough(ctx, models.CollectionIdeas, idea.ID, idea.TeamCode, idea); err != nil {
		return err
	}
	s.mu.Lock()
	s.ideas = upsert(s.ideas, idea, func(i models.IdeaCard) string { return i.ID })
	s.mu.Unlock()
	return nil
}

func (s *Synchronizer) DeleteIdea(ctx context.Context, id string) error {
	if err := s.deleteThrough(ctx, models.CollectionIdeas, id); err != nil {
		return err
	}
	s.mu.Lock()
	s.ideas = remove(s.ideas, id, func(i models.IdeaCard) string { return i.ID })
	s.mu.Unlock()
	return nil
}

func (s *Synchronizer) SaveChannel(ctx context.Context, channel models.ChatChannel) error {
	if err := s.writeThrough(ctx, models.CollectionChannels, channel.ID, channel.TeamCode, channel); err != nil {
		return err
	}
	s.mu.Lock()
	s.channels = upsert(s.channels, channel, func(c models.ChatChannel) string { return c.ID })
	SortChannels(s.channels)
	s.mu.Unlock()
	return nil
}

func (s *Synchronizer) DeleteChannel(ctx context.Context, id string) error {
	if err := s.deleteThrough(ctx, models.CollectionChannels, id); err != nil {
		return err
	}
	s.mu.Lock()
	s.channels = remove(s.channels, id, func(c models.ChatChannel) string { return c.ID })
	s.mu.Unlock()
	return nil
}

func (s *Synchronizer) SaveLocation(ctx context.Context, location models.Location) error {
	if err := s.writeThrough(ctx, models.CollectionLocations, location.ID, location.TeamCode, location); err != nil {
		return err
	}
	s.mu.Lock()
	s.locations = upsert(s.locations, location, func(l models.Location) string { return l.ID })
	s.mu.Unlock()
	return nil
}

func (s *Synchronizer) DeleteLocation(ctx context.Context, id string) error {
	if err := s.deleteThrough(ctx, models.CollectionLocations, id); err != nil {
		return err
	}
	s.mu.Lock()
	s.locations = remove(s.locations, id, func(l models.Location) string { return l.ID })
	s.mu.Unlock()
	return nil
}

func (s *Synchronizer) SaveRoom(ctx context.Context, room models.Room) error {
	if err := s.writeThrough(ctx, models.CollectionRooms, room.ID, room.TeamCode, room); err != nil {
		return err
	}
	s.mu.Lock()
	s.rooms = upsert(s.rooms, room, func(r models.Room) string { return r.ID })
	s.mu.Unlock()
	return nil
}

func (s *Synchronizer) DeleteRoom(ctx context.Context, id string) error {
	if err := s.deleteThrough(ctx, models.CollectionRooms, id); err != nil {
		return err
	}
	s.mu.Lock()
	s.rooms = remove(s.rooms, id, func(r models.Room) string { return r.ID })
	s.mu.Unlock()
	return nil
}

func (s *Synchronizer) SaveMember(ctx context.Context, member models.TeamMember) error {
	if err := s.writeThrough(ctx, models.CollectionUsers, member.ID, member.TeamCode, member); err != nil {
		return err
	}
	s.mu.Lock()
	s.members = upsert(s.members, member, func(m models.TeamMember) string { return m.ID })
	s.mu.Unlock()
	return nil
}

// writeThrough validates and persists one document. The team code is
// immutable and must match the attached team; accepting a stray code here
// would let a write escape team isolation.
func (s *Synchronizer) writeThrough(ctx context.Context, collection, id, teamCode string, doc any) error {
	if strings.TrimSpace(id) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "document id required")
	}

	s.mu.Lock()
	attached := s.teamCode
	state := s.state
	s.mu.Unlock()
	if state != StateLive {
		return pkgerrors.New(pkgerrors.CodeConflict, "synchronizer is not attached")
	}
	if !strings.EqualFold(teamCode, attached) {
		return pkgerrors.New(pkgerrors.CodeValidation, "document team code does not match attached team")
	}

	if err := s.store.Set(ctx, collection, id, doc, false); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save "+collection+" document")
	}
	return nil
}

func (s *Synchronizer) deleteThrough(ctx context.Context, collection, id string) error {
	if strings.TrimSpace(id) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "document id required")
	}
	if err := s.store.Delete(ctx, collection, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete "+collection+" document")
	}
	return nil
}

func upsert[T any](list []T, item T, idOf func(T) string) []T {
	id := idOf(item)
	for i := range list {
		if idOf(list[i]) == id {
			list[i] = item
			return list
		}
	}
	return append(list, item)
}

func remove[T any](list []T, id string, idOf func(T) string) []T {
	out := list[:0]
	for _, item := range list {
		if idOf(item) != id {
			out = append(out, item)
		}
	}
	return out
}
