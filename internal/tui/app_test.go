package tui

import (
	"testing"

	"github.com/cove-chat/cove/internal/chat"
)

func TestCloseSupersedesPendingOpen(t *testing.T) {
	a := &App{}

	seq := a.beginOpen()
	a.closeConversation()

	if a.installController(seq, &chat.Controller{}) {
		t.Fatal("controller from a superseded open must not install")
	}
	if a.controller() != nil {
		t.Fatal("expected no active controller after close")
	}
}

func TestLaterOpenWins(t *testing.T) {
	a := &App{}

	first := a.beginOpen()
	second := a.beginOpen()

	winner := &chat.Controller{}
	if !a.installController(second, winner) {
		t.Fatal("latest open must install its controller")
	}
	if a.installController(first, &chat.Controller{}) {
		t.Fatal("slow earlier open must not displace the latest controller")
	}
	if a.controller() != winner {
		t.Fatal("expected the latest open's controller to stay active")
	}
}
