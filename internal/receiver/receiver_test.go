package receiver

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePresenter records alerts keyed by tag, replacing on collision the way
// a platform notification tray does.
type fakePresenter struct {
	alerts map[string]Alert
	shown  []Alert
	closed []string
}

func newFakePresenter() *fakePresenter {
	return &fakePresenter{alerts: make(map[string]Alert)}
}

func (p *fakePresenter) Show(a Alert) error {
	p.alerts[a.Tag] = a
	p.shown = append(p.shown, a)
	return nil
}

func (p *fakePresenter) Close(tag string) {
	delete(p.alerts, tag)
	p.closed = append(p.closed, tag)
}

type fakeClient struct {
	url       string
	focused   bool
	navigated string
	focusErr  error
}

func (c *fakeClient) URL() string { return c.url }
func (c *fakeClient) Focus() error {
	if c.focusErr != nil {
		return c.focusErr
	}
	c.focused = true
	return nil
}
func (c *fakeClient) Navigate(url string) error {
	c.navigated = url
	return nil
}

type fakeClients struct {
	list   []Client
	opened []string
}

func (c *fakeClients) List() []Client { return c.list }
func (c *fakeClients) OpenWindow(url string) error {
	c.opened = append(c.opened, url)
	return nil
}

func activeReceiver(p Presenter, c Clients) *Receiver {
	r := New(p, c, "https://shop.example/")
	r.Activate()
	return r
}

func TestLifecycle(t *testing.T) {
	r := New(newFakePresenter(), &fakeClients{}, "/")
	assert.Equal(t, StateInstalled, r.State())

	r.SkipWaiting()
	assert.Equal(t, StateActive, r.State())

	// Activating twice is harmless.
	r.Activate()
	assert.Equal(t, StateActive, r.State())
}

func TestHandlePush_RequiresActive(t *testing.T) {
	r := New(newFakePresenter(), &fakeClients{}, "/")
	err := r.HandlePush([]byte(`{"title":"x","body":"y"}`))
	assert.Error(t, err)
}

func TestHandlePush_ParsesPayload(t *testing.T) {
	p := newFakePresenter()
	r := activeReceiver(p, &fakeClients{})

	err := r.HandlePush([]byte(`{"title":"Order shipped","body":"On the way","tag":"n-1","url":"/orders/1","renotify":true}`))
	require.NoError(t, err)
	require.Len(t, p.shown, 1)
	assert.Equal(t, "Order shipped", p.shown[0].Title)
	assert.Equal(t, "n-1", p.shown[0].Tag)
	assert.Equal(t, "/orders/1", p.shown[0].URL)
	assert.True(t, p.shown[0].Renotify)
}

func TestHandlePush_MalformedPayloadFallsBack(t *testing.T) {
	p := newFakePresenter()
	r := activeReceiver(p, &fakeClients{})

	require.NoError(t, r.HandlePush([]byte(`{not json`)))
	require.NoError(t, r.HandlePush(nil))

	require.Len(t, p.shown, 2)
	for _, a := range p.shown {
		assert.Equal(t, DefaultPayload.Title, a.Title)
		assert.Equal(t, DefaultPayload.Body, a.Body)
	}
}

func TestHandlePush_SameTagReplacesAlert(t *testing.T) {
	p := newFakePresenter()
	r := activeReceiver(p, &fakeClients{})

	require.NoError(t, r.HandlePush([]byte(`{"title":"first","body":"b","tag":"n-1"}`)))
	require.NoError(t, r.HandlePush([]byte(`{"title":"second","body":"b","tag":"n-1"}`)))

	assert.Len(t, p.alerts, 1)
	assert.Equal(t, "second", p.alerts["n-1"].Title)
}

func TestHandlePush_MissingTagStacks(t *testing.T) {
	p := newFakePresenter()
	r := activeReceiver(p, &fakeClients{})

	require.NoError(t, r.HandlePush([]byte(`{"title":"a","body":"b"}`)))
	require.NoError(t, r.HandlePush([]byte(`{"title":"c","body":"d"}`)))

	assert.Len(t, p.alerts, 2)
}

func TestHandleAction_DismissOnlyCloses(t *testing.T) {
	p := newFakePresenter()
	clients := &fakeClients{list: []Client{&fakeClient{url: "https://shop.example/admin"}}}
	r := activeReceiver(p, clients)

	err := r.HandleAction(ActionDismiss, Alert{Tag: "n-1", URL: "/orders/1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"n-1"}, p.closed)
	assert.Empty(t, clients.opened)
	assert.Empty(t, clients.list[0].(*fakeClient).navigated)
}

func TestHandleAction_OpenFocusesInScopeClient(t *testing.T) {
	p := newFakePresenter()
	inScope := &fakeClient{url: "https://shop.example/admin"}
	outOfScope := &fakeClient{url: "https://other.example/"}
	clients := &fakeClients{list: []Client{outOfScope, inScope}}
	r := activeReceiver(p, clients)

	err := r.HandleAction(ActionOpen, Alert{Tag: "n-1", URL: "/orders/1"})
	require.NoError(t, err)
	assert.True(t, inScope.focused)
	assert.Equal(t, "/orders/1", inScope.navigated)
	assert.False(t, outOfScope.focused)
	assert.Empty(t, clients.opened)
}

func TestHandleAction_OpenWithoutClientOpensWindow(t *testing.T) {
	p := newFakePresenter()
	clients := &fakeClients{}
	r := activeReceiver(p, clients)

	err := r.HandleAction(ActionOpen, Alert{Tag: "n-1", URL: "/orders/1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/orders/1"}, clients.opened)
}

func TestHandleAction_FocusFailureFallsThrough(t *testing.T) {
	p := newFakePresenter()
	broken := &fakeClient{url: "https://shop.example/a", focusErr: errors.New("window gone")}
	clients := &fakeClients{list: []Client{broken}}
	r := activeReceiver(p, clients)

	err := r.HandleAction(ActionOpen, Alert{Tag: "n-1"})
	require.NoError(t, err)
	// Default landing page when the alert carried no URL.
	assert.Equal(t, []string{DefaultPayload.URL}, clients.opened)
}
