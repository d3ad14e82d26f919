// Package receiver implements the device-side background process protocol:
// lifecycle, push payload handling and alert interaction. It is deliberately
// stateless between pushes — everything needed to act on a payload travels
// in the payload itself, and the only retained state is the platform alert
// queue behind the Presenter.
package receiver

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// State is the receiver lifecycle phase.
type State int

const (
	StateInstalled State = iota
	StateActivating
	StateActive
)

func (s State) String() string {
	switch s {
	case StateInstalled:
		return "installed"
	case StateActivating:
		return "activating"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// Payload is the parsed push message. Unknown or malformed input falls back
// to DefaultPayload rather than dropping the push on the floor.
type Payload struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Category string `json:"category"`
	URL      string `json:"url"`
	Tag      string `json:"tag"`
	Renotify bool   `json:"renotify"`
}

// DefaultPayload is shown when a push carries no parseable body.
var DefaultPayload = Payload{
	Title: "Empire Auto Parts",
	Body:  "You have a new notification",
	URL:   "/admin",
}

// Alert is one user-visible notification in the platform queue.
type Alert struct {
	Title    string
	Body     string
	Tag      string
	URL      string
	Renotify bool
}

// Actions a user can take on an alert.
const (
	ActionOpen    = "open"
	ActionDismiss = "dismiss"
)

// Presenter is the platform alert surface. Show must replace an existing
// alert carrying the same tag instead of stacking a second one.
type Presenter interface {
	Show(a Alert) error
	Close(tag string)
}

// Client is one foreground window/tab of the application.
type Client interface {
	URL() string
	Focus() error
	Navigate(url string) error
}

// Clients enumerates and opens foreground clients.
type Clients interface {
	List() []Client
	OpenWindow(url string) error
}

// Receiver drives the background process protocol for one device.
type Receiver struct {
	state     State
	presenter Presenter
	clients   Clients
	// scope is the URL prefix this receiver controls; the open action
	// focuses an existing client only when its URL falls inside the scope.
	scope string
}

func New(presenter Presenter, clients Clients, scope string) *Receiver {
	return &Receiver{
		state:     StateInstalled,
		presenter: presenter,
		clients:   clients,
		scope:     scope,
	}
}

func (r *Receiver) State() State { return r.state }

// Activate moves the receiver to Active, taking control of all pages
// immediately rather than waiting for an older instance to wind down.
func (r *Receiver) Activate() {
	if r.state == StateActive {
		return
	}
	r.state = StateActivating
	r.state = StateActive
}

// SkipWaiting is the foreground's signal to force activation of a freshly
// installed instance.
func (r *Receiver) SkipWaiting() {
	if r.state == StateInstalled {
		r.Activate()
	}
}

// HandlePush parses the payload and renders exactly one alert. A payload
// that fails to parse still produces an alert built from DefaultPayload:
// the user must never lose a push to a formatting bug on the sender side.
func (r *Receiver) HandlePush(data []byte) error {
	if r.state != StateActive {
		return fmt.Errorf("receiver not active (state %s)", r.state)
	}

	p := parsePayload(data)
	tag := p.Tag
	if tag == "" {
		// No tag means no dedup intent: make the alert unique so it stacks.
		tag = "push-" + strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return r.presenter.Show(Alert{
		Title:    p.Title,
		Body:     p.Body,
		Tag:      tag,
		URL:      p.URL,
		Renotify: p.Renotify,
	})
}

// HandleAction reacts to a user interacting with an alert. The alert is
// closed first in every case so no stale alert lingers. Open focuses an
// in-scope foreground client and navigates it, or opens a new window when
// none exists; dismiss navigates nowhere.
func (r *Receiver) HandleAction(action string, a Alert) error {
	r.presenter.Close(a.Tag)

	if action == ActionDismiss {
		return nil
	}

	url := a.URL
	if url == "" {
		url = DefaultPayload.URL
	}
	for _, c := range r.clients.List() {
		if strings.HasPrefix(c.URL(), r.scope) {
			if err := c.Focus(); err != nil {
				continue
			}
			return c.Navigate(url)
		}
	}
	return r.clients.OpenWindow(url)
}

func parsePayload(data []byte) Payload {
	if len(data) == 0 {
		return DefaultPayload
	}
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return DefaultPayload
	}
	if p.Title == "" {
		p.Title = DefaultPayload.Title
	}
	if p.Body == "" {
		p.Body = DefaultPayload.Body
	}
	return p
}
