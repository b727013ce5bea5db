package subscriber

import "errors"

// Announcement is the payload published on the announcements channel.
type Announcement struct {
	ID   string `json:"id,omitempty"`
	Text string `json:"text"`
}

func (a *Announcement) Validate() error {
	if a.Text == "" {
		return errors.New("announcement text is empty")
	}
	return nil
}
