package domain

import "time"

type Post struct {
	Id         PostId     `json:"id"`
	Owner      Owner      `json:"owner"`
	Text       PostText   `json:"text"`
	Attachment Attachment `json:"attachment,omitempty"`
	Created    time.Time  `json:"created"`
	Modified   time.Time  `json:"modified"`
	Deleted    bool       `json:"deleted"`
	ThreadId   ThreadId   `json:"thread_id"`
}

func NewPost(id PostId, thread ThreadId, owner Owner, text PostText, attachment Attachment, now time.Time) Post {
	return Post{
		Id:         id,
		Owner:      owner,
		Text:       text,
		Attachment: attachment,
		Created:    now,
		Modified:   now,
		ThreadId:   thread,
	}
}

// Every mutator stamps Modified before applying the change.
// Modified never goes below Created, even if the clock steps back.

func (p *Post) ModifyOwner(now time.Time, owner Owner) {
	p.touch(now)
	p.Owner = owner
}

func (p *Post) ModifyText(now time.Time, text PostText) {
	p.touch(now)
	p.Text = text
}

func (p *Post) RemoveAttachment(now time.Time) {
	p.touch(now)
	p.Attachment = nil
}

func (p *Post) Delete(now time.Time) {
	p.touch(now)
	p.Deleted = true
}

func (p *Post) Undelete(now time.Time) {
	p.touch(now)
	p.Deleted = false
}

func (p *Post) touch(now time.Time) {
	if now.Before(p.Created) {
		now = p.Created
	}
	p.Modified = now
}

// Clone returns a copy that shares no memory with p.
func (p Post) Clone() Post {
	if p.Attachment != nil {
		p.Attachment = append(Attachment(nil), p.Attachment...)
	}
	return p
}
