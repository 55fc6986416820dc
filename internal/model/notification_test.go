package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocalizedTitle(t *testing.T) {
	tests := []struct {
		name   string
		locale string
		actor  string
		want   string
	}{
		{"vietnamese recipient", "vi", "An", "Tin nhắn mới từ An"},
		{"korean recipient", "ko", "An", "An님의 새 메시지"},
		{"english recipient", "en", "An", "New message from An"},
		{"unknown locale falls back to english", "fr", "An", "New message from An"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &Notification{Kind: NotificationKindDMMessage}
			recipient := &User{Locale: tt.locale}
			assert.Equal(t, tt.want, n.LocalizedTitle(recipient, tt.actor))
		})
	}
}

func TestLocalizedTitleWithoutActorKeepsStoredTitle(t *testing.T) {
	n := &Notification{Kind: NotificationKindDMMessage, Title: "Thông báo"}
	assert.Equal(t, "Thông báo", n.LocalizedTitle(&User{Locale: "vi"}, ""))
}

func TestLocalizedTitleNonDMKindsKeepStoredTitle(t *testing.T) {
	n := &Notification{Kind: NotificationKindSystemAlert, Title: "Bảo trì hệ thống"}
	assert.Equal(t, "Bảo trì hệ thống", n.LocalizedTitle(&User{Locale: "ko"}, "An"))
}

func TestLocalizedBodyTruncatesDMs(t *testing.T) {
	short := &Notification{Kind: NotificationKindDMMessage, Body: "xin chào"}
	assert.Equal(t, "xin chào", short.LocalizedBody())

	// multi-byte text must be cut on rune boundaries
	long := &Notification{Kind: NotificationKindDMMessage, Body: strings.Repeat("ơ", 120)}
	got := long.LocalizedBody()
	assert.Equal(t, 80, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "..."))

	system := &Notification{Kind: NotificationKindSystemAlert, Body: strings.Repeat("a", 120)}
	assert.Len(t, system.LocalizedBody(), 120)
}

func TestTerminal(t *testing.T) {
	assert.False(t, (&Notification{Status: NotificationStatusPending}).Terminal())
	for _, status := range []NotificationStatus{
		NotificationStatusDelivered, NotificationStatusSkipped, NotificationStatusFailed,
	} {
		assert.True(t, (&Notification{Status: status}).Terminal())
	}
}
