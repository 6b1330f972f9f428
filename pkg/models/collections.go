package models

// Collection names are the de facto schema shared with already-deployed
// clients; do not rename.
const (
	CollectionUsers      = "users"
	CollectionTeams      = "teams"
	CollectionGear       = "gear"
	CollectionPatches    = "patches"
	CollectionLessons    = "lessons"
	CollectionChecklists = "checklists"
	CollectionIdeas      = "ideas"
	CollectionChannels   = "channels"
	CollectionLocations  = "locations"
	CollectionRooms      = "rooms"
)
