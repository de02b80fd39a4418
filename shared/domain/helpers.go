package domain

import (
	"fmt"
	"time"
)

// for debug
func (p *Post) String() string {
	return fmt.Sprintf("[id:%d, owner:%s, text:%s, created:%s, modified:%s, deleted:%t, thread_id:%d, attachment:%dB]",
		p.Id, p.Owner, p.Text, p.Created.Format(time.StampMilli), p.Modified.Format(time.StampMilli), p.Deleted, p.ThreadId, len(p.Attachment))
}

func (t *Thread) String() string {
	return fmt.Sprintf("[id:%d, name:%s, locked:%t, deleted:%t, children:%v]", t.Id, t.Name, t.Locked, t.Deleted, t.Children)
}
