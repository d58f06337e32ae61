// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import "testing"

func TestMessageValidate(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		msg     *Message
		wantErr bool
	}{
		"success: user text": {
			msg: NewUserTextMessage("hi"),
		},
		"success: agent data": {
			msg: NewAgentPartsMessage("t", "c", NewDataPart(map[string]any{"rate": 1.1})),
		},
		"error: nil": {
			wantErr: true,
		},
		"error: no parts": {
			msg:     &Message{Role: RoleUser},
			wantErr: true,
		},
		"error: bad role": {
			msg:     &Message{Role: "system", Parts: []Part{NewTextPart("x")}},
			wantErr: true,
		},
		"error: empty text part": {
			msg:     &Message{Role: RoleUser, Parts: []Part{{Kind: PartKindText}}},
			wantErr: true,
		},
		"error: file without content": {
			msg:     &Message{Role: RoleUser, Parts: []Part{{Kind: PartKindFile, File: &FileContent{Name: "a"}}}},
			wantErr: true,
		},
		"error: unknown part kind": {
			msg:     &Message{Role: RoleUser, Parts: []Part{{Kind: "video", Text: "x"}}},
			wantErr: true,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if err := tt.msg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMessageText(t *testing.T) {
	t.Parallel()

	msg := &Message{
		Role: RoleUser,
		Parts: []Part{
			NewTextPart("first"),
			NewDataPart(map[string]any{"ignored": true}),
			NewTextPart("second"),
		},
	}
	if got, want := msg.Text(), "first\nsecond"; got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}

	var nilMsg *Message
	if got := nilMsg.Text(); got != "" {
		t.Errorf("nil Text() = %q, want empty", got)
	}
}
