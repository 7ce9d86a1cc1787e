package realtime

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishRetainsLatestEventPerSubject(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	subject := CustomizationSubject("u1", "movie", "603")
	hub.Publish(subject, map[string]string{"custom_poster": "v1.jpg"})
	hub.Publish(subject, map[string]string{"custom_poster": "v2.jpg"})

	ev, ok := hub.Retained(subject)
	require.True(t, ok)
	assert.True(t, ev.Found)
	assert.Equal(t, subject, ev.Subject)

	var doc map[string]string
	require.NoError(t, json.Unmarshal(ev.Doc, &doc))
	assert.Equal(t, "v2.jpg", doc["custom_poster"], "only the latest document is retained")
}

func TestRetractRetainsNotFound(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	subject := CustomizationSubject("u1", "movie", "603")
	hub.Publish(subject, map[string]string{"custom_poster": "v1.jpg"})
	hub.Retract(subject)

	ev, ok := hub.Retained(subject)
	require.True(t, ok)
	assert.False(t, ev.Found, "a retracted subject replays as not-found")
	assert.Empty(t, ev.Doc)
}

func TestUnknownSubjectHasNoRetainedEvent(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	_, ok := hub.Retained(ProfileSubject("nobody"))
	assert.False(t, ok)
}

func TestTCPFirehoseCarriesEverySubject(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	server, client := net.Pipe()
	defer client.Close()

	lines := make(chan string, 8)
	go func() {
		sc := bufio.NewScanner(client)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	hub.AddTCP(server)
	defer hub.RemoveTCP(server)

	readLine := func() string {
		t.Helper()
		select {
		case line := <-lines:
			return line
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for firehose line")
			return ""
		}
	}

	var welcome map[string]any
	require.NoError(t, json.Unmarshal([]byte(readLine()), &welcome))
	assert.Equal(t, TypeWelcome, welcome["type"])

	hub.Publish(ProfileSubject("u1"), map[string]int{"followers_count": 3})
	hub.Publish(CustomizationSubject("u2", "tv", "1396"), map[string]string{"custom_banner": "b.jpg"})

	var first, second ChangeEvent
	require.NoError(t, json.Unmarshal([]byte(readLine()), &first))
	require.NoError(t, json.Unmarshal([]byte(readLine()), &second))
	assert.Equal(t, ProfileSubject("u1"), first.Subject)
	assert.Equal(t, CustomizationSubject("u2", "tv", "1396"), second.Subject)

	stats := hub.Stats()
	assert.Equal(t, 1, stats.TCPClients)
}
