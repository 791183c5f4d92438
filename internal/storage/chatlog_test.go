package storage

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatLogRecordAndRecent(t *testing.T) {
	l := NewChatLog("")
	l.Record(ChatMessage{ID: "1", ChatID: "chat", FromMe: true, Text: "enviada"})
	l.Record(ChatMessage{ID: "2", ChatID: "chat", FromMe: false, Text: "recebida"})

	recent := l.Recent("chat", 10)
	require.Len(t, recent, 2)
	assert.Equal(t, "enviada", recent[0].Text)
	assert.Equal(t, "recebida", recent[1].Text)

	assert.Empty(t, l.Recent("outro", 10))
}

func TestChatLogDeduplicatesByID(t *testing.T) {
	l := NewChatLog("")
	l.Record(ChatMessage{ID: "same", ChatID: "chat", Text: "uma vez"})
	l.Record(ChatMessage{ID: "same", ChatID: "chat", Text: "uma vez"})

	assert.Len(t, l.Recent("chat", 10), 1)
}

func TestChatLogCapsWindow(t *testing.T) {
	l := NewChatLog("")
	for i := 0; i < maxChatMessages+10; i++ {
		l.Record(ChatMessage{ID: fmt.Sprintf("m%d", i), ChatID: "chat", Text: fmt.Sprintf("msg %d", i)})
	}

	recent := l.Recent("chat", 0)
	require.Len(t, recent, maxChatMessages)
	// Oldest entries were shifted out.
	assert.Equal(t, "msg 10", recent[0].Text)
}

func TestChatLogRecentLimit(t *testing.T) {
	l := NewChatLog("")
	for i := 0; i < 20; i++ {
		l.Record(ChatMessage{ID: fmt.Sprintf("m%d", i), ChatID: "chat", Text: fmt.Sprintf("msg %d", i)})
	}

	recent := l.Recent("chat", 5)
	require.Len(t, recent, 5)
	assert.Equal(t, "msg 15", recent[0].Text)
	assert.Equal(t, "msg 19", recent[4].Text)
}

func TestChatLogFlushAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wpp_store.json")

	l := NewChatLog(path)
	l.Record(ChatMessage{ID: "1", ChatID: "chat", FromMe: true, Text: "persistida"})
	require.NoError(t, l.Flush())

	reloaded := NewChatLog(path)
	recent := reloaded.Recent("chat", 10)
	require.Len(t, recent, 1)
	assert.True(t, recent[0].FromMe)
	assert.Equal(t, "persistida", recent[0].Text)
}
