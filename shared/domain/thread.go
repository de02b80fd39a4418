package domain

type Thread struct {
	Id       ThreadId   `json:"id"`
	Name     ThreadName `json:"name"`
	Children []PostId   `json:"children"` // root post first, then replies in order
	Locked   bool       `json:"locked"`
	Deleted  bool       `json:"deleted"`
}

func NewThread(name ThreadName, root PostId) Thread {
	return Thread{
		Id:       root,
		Name:     name,
		Children: []PostId{root},
	}
}

// Parent returns the root post id. Children is never empty.
func (t *Thread) Parent() PostId {
	return t.Children[0]
}

func (t *Thread) NumReplies() int {
	return len(t.Children) - 1
}

func (t *Thread) AddChild(child PostId) {
	t.Children = append(t.Children, child)
}

func (t *Thread) Rename(name ThreadName) { t.Name = name }
func (t *Thread) Lock()                  { t.Locked = true }
func (t *Thread) Unlock()                { t.Locked = false }
func (t *Thread) Delete()                { t.Deleted = true }
func (t *Thread) Undelete()              { t.Deleted = false }

func (t Thread) Clone() Thread {
	t.Children = append([]PostId(nil), t.Children...)
	return t
}
