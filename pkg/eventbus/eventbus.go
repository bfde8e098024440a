// Package eventbus mirrors a debug session's stop/stdout/error/close events
// onto Redis pub/sub channels through pkg/redis's Publish, so a front-end
// running out-of-process from the debug adapter can observe a session
// without holding the Transport itself.
package eventbus

import (
	"fmt"
	"log"

	"github.com/FlintVN/FlintDebug/pkg/session"
)

// Publisher is the subset of redis.Client's API the mirror needs. Accepting
// this instead of *redis.Client lets tests exercise the mirror without a
// live Redis connection.
type Publisher interface {
	Publish(channel string, message string) error
}

// Channel names are scoped under a session ID so multiple sessions can
// share one Redis instance without colliding.
const (
	channelStop   = "stop"
	channelStdout = "stdout"
	channelError  = "error"
	channelClose  = "close"
)

// Mirror republishes one Session's events onto Redis channels named
// "flintdebug:<sessionID>:<event>".
type Mirror struct {
	client    Publisher
	sessionID string
}

// New constructs a Mirror around an already-connected redis.Client. sessionID
// distinguishes this session's channels from any other session sharing the
// same Redis instance.
func New(client Publisher, sessionID string) *Mirror {
	return &Mirror{client: client, sessionID: sessionID}
}

func (m *Mirror) channel(event string) string {
	return fmt.Sprintf("flintdebug:%s:%s", m.sessionID, event)
}

// Attach registers the mirror as the session's event handlers. It replaces
// any handlers already registered for those event kinds, per the session's
// single-handler-per-kind rule.
func (m *Mirror) Attach(s *session.Session) {
	s.OnStop(m.publishStop)
	s.OnStdout(m.publishStdout)
	s.OnError(m.publishError)
	s.OnClose(m.publishClose)
}

func (m *Mirror) publishStop(ev session.StopEvent) {
	if err := m.client.Publish(m.channel(channelStop), ev.Reason); err != nil {
		log.Printf("eventbus: failed to publish stop event: %v", err)
	}
}

func (m *Mirror) publishStdout(text string) {
	if err := m.client.Publish(m.channel(channelStdout), text); err != nil {
		log.Printf("eventbus: failed to publish stdout event: %v", err)
	}
}

func (m *Mirror) publishError(err error) {
	if pubErr := m.client.Publish(m.channel(channelError), err.Error()); pubErr != nil {
		log.Printf("eventbus: failed to publish error event: %v", pubErr)
	}
}

func (m *Mirror) publishClose() {
	if err := m.client.Publish(m.channel(channelClose), "1"); err != nil {
		log.Printf("eventbus: failed to publish close event: %v", err)
	}
}
