package xmpp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBareJID(t *testing.T) {
	tests := []struct {
		name string
		jid  string
		want string
	}{
		{"bare JID unchanged", "alice@chat.glowcart.local", "alice@chat.glowcart.local"},
		{"resource stripped", "alice@chat.glowcart.local/phone", "alice@chat.glowcart.local"},
		{"only first slash matters", "alice@chat.glowcart.local/a/b", "alice@chat.glowcart.local"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BareJID(tt.jid))
		})
	}
}
