package domain

// BoardConfig is the resolved configuration a board is built from.
type BoardConfig struct {
	Name            BoardName
	Description     Description
	ActiveCapacity  int
	ArchiveCapacity int
}

type BoardStats struct {
	Name            BoardName   `json:"name"`
	Description     Description `json:"description"`
	ActiveLen       int         `json:"active_len"`
	ActiveCapacity  int         `json:"active_capacity"`
	ArchiveLen      int         `json:"archive_len"`
	ArchiveCapacity int         `json:"archive_capacity"`
	StickyLen       int         `json:"sticky_len"`
	LivePosts       int         `json:"live_posts"`
	Count           uint64      `json:"count"`
}

// BoardView is a board's stats and queue contents taken at one instant.
type BoardView struct {
	BoardStats
	Active  []ThreadId `json:"active"`
	Archive []ThreadId `json:"archive"`
	Sticky  []ThreadId `json:"sticky"`
}

// BoardSnapshot is the full persisted state of one board.
// Active and Archive are ordered oldest to most recently bumped.
type BoardSnapshot struct {
	Name            BoardName   `json:"name"`
	Description     Description `json:"description"`
	ActiveCapacity  int         `json:"active_capacity"`
	ArchiveCapacity int         `json:"archive_capacity"`
	Count           uint64      `json:"count"`
	Active          []ThreadId  `json:"active"`
	Archive         []ThreadId  `json:"archive"`
	Sticky          []ThreadId  `json:"sticky"`
	Posts           []PostId    `json:"posts"`
	Threads         []Thread    `json:"threads"`
	PostRecords     []Post      `json:"post_records"`
}

func (s *BoardSnapshot) Config() BoardConfig {
	return BoardConfig{
		Name:            s.Name,
		Description:     s.Description,
		ActiveCapacity:  s.ActiveCapacity,
		ArchiveCapacity: s.ArchiveCapacity,
	}
}
