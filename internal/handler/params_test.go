// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http/httptest"
	"testing"
)

func TestParseIDParam(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		want    int64
		wantErr bool
	}{
		{"valid", "42", 42, false},
		{"large", "9223372036854775807", 9223372036854775807, false},
		{"zero", "0", 0, true},
		{"negative", "-5", 0, true},
		{"not a number", "abc", 0, true},
		{"empty", "", 0, true},
		{"float", "1.5", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/admin/articles/"+tt.id, nil)
			r = requestWithURLParams(r, map[string]string{"id": tt.id})

			got, err := ParseIDParam(r)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseIDParam(%q) expected error, got %d", tt.id, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseIDParam(%q) unexpected error: %v", tt.id, err)
			}
			if got != tt.want {
				t.Errorf("ParseIDParam(%q) = %d, want %d", tt.id, got, tt.want)
			}
		})
	}
}
