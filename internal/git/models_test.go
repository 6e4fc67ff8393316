package git

import (
	"encoding/json"
	"testing"
	"time"
)

func TestFileEntry_Churn(t *testing.T) {
	tests := []struct {
		name     string
		added    string
		removed  string
		expected int
		binary   bool
	}{
		{name: "Both positive", added: "10", removed: "5", expected: 15},
		{name: "Only added", added: "10", removed: "0", expected: 10},
		{name: "Only removed", added: "0", removed: "5", expected: 5},
		{name: "Binary", added: "-", removed: "-", expected: 0, binary: true},
		{name: "No numstat", added: "", removed: "", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := FileEntry{Added: tt.added, Removed: tt.removed}
			if got := f.Churn(); got != tt.expected {
				t.Errorf("Churn() = %d, expected %d", got, tt.expected)
			}
			if got := f.IsBinary(); got != tt.binary {
				t.Errorf("IsBinary() = %v, expected %v", got, tt.binary)
			}
		})
	}
}

func TestFileEntry_Kind(t *testing.T) {
	tests := []struct {
		action   string
		expected ChangeKind
	}{
		{action: "A", expected: ChangeKindAdded},
		{action: "M", expected: ChangeKindModified},
		{action: "MM", expected: ChangeKindModified},
		{action: "T", expected: ChangeKindModified},
		{action: "D", expected: ChangeKindDeleted},
		{action: "R100", expected: ChangeKindRenamed},
		{action: "C75", expected: ChangeKindCopied},
		{action: "", expected: ChangeKindUnknown},
		{action: "X", expected: ChangeKindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			if got := (FileEntry{Action: tt.action}).Kind(); got != tt.expected {
				t.Errorf("Kind() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestChangeKind_String(t *testing.T) {
	tests := []struct {
		name     string
		kind     ChangeKind
		expected string
	}{
		{name: "Added", kind: ChangeKindAdded, expected: "added"},
		{name: "Modified", kind: ChangeKindModified, expected: "modified"},
		{name: "Deleted", kind: ChangeKindDeleted, expected: "deleted"},
		{name: "Renamed", kind: ChangeKindRenamed, expected: "renamed"},
		{name: "Copied", kind: ChangeKindCopied, expected: "copied"},
		{name: "Unknown", kind: ChangeKind(99), expected: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.expected {
				t.Errorf("String() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestFileEntry_Modes(t *testing.T) {
	tests := []struct {
		name    string
		modes   []string
		newMode FileMode
		changed bool
	}{
		{name: "Regular", modes: []string{"100644", "100644"}, newMode: FileModeRegular},
		{name: "Made executable", modes: []string{"100644", "100755"}, newMode: FileModeExec, changed: true},
		{name: "Added", modes: []string{"000000", "100644"}, newMode: FileModeRegular},
		{name: "Deleted", modes: []string{"100644", "000000"}, newMode: FileModeEmpty},
		{name: "Merge", modes: []string{"100644", "100755", "100755"}, newMode: FileModeExec, changed: true},
		{name: "No modes", modes: nil, newMode: FileModeEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := FileEntry{Modes: tt.modes}
			if got := f.NewMode(); got != tt.newMode {
				t.Errorf("NewMode() = %v, expected %v", got, tt.newMode)
			}
			if got := f.ModeChanged(); got != tt.changed {
				t.Errorf("ModeChanged() = %v, expected %v", got, tt.changed)
			}
		})
	}
}

func TestParseFileMode(t *testing.T) {
	m, err := ParseFileMode("120000")
	if err != nil {
		t.Fatalf("ParseFileMode: %v", err)
	}
	if m != FileModeSymlink || !m.IsFile() {
		t.Errorf("ParseFileMode(120000) = %v", m)
	}
	if m.String() != "120000" {
		t.Errorf("String() = %q", m.String())
	}
	if FileModeSubmodule.IsFile() {
		t.Error("submodule reported as a file")
	}
	if _, err := ParseFileMode("10064x"); err == nil {
		t.Error("expected an error for a non-octal mode")
	}
}

func TestCommit_Times(t *testing.T) {
	c := &Commit{Headers: map[string]string{
		"AuthorDate": "Tue Aug 14 14:30:13 2012 -0300",
		"CommitDate": "Wed Aug 15 09:00:00 2012 +0200",
	}}

	at, err := c.AuthorTime()
	if err != nil {
		t.Fatalf("AuthorTime: %v", err)
	}
	if want := time.Date(2012, 8, 14, 17, 30, 13, 0, time.UTC); !at.Equal(want) {
		t.Errorf("AuthorTime() = %v, expected %v", at, want)
	}

	ct, err := c.CommitTime()
	if err != nil {
		t.Fatalf("CommitTime: %v", err)
	}
	if want := time.Date(2012, 8, 15, 7, 0, 0, 0, time.UTC); !ct.Equal(want) {
		t.Errorf("CommitTime() = %v, expected %v", ct, want)
	}

	if _, err := (&Commit{}).CommitTime(); err == nil {
		t.Error("expected an error without a CommitDate header")
	}
}

func TestCommit_IsMerge(t *testing.T) {
	if (&Commit{Parents: []string{"a"}}).IsMerge() {
		t.Error("single parent reported as merge")
	}
	if !(&Commit{Parents: []string{"a", "b"}}).IsMerge() {
		t.Error("two parents not reported as merge")
	}
}

func TestCommit_MarshalJSON(t *testing.T) {
	c := &Commit{
		Hash:     "456a68ee1407a77f3e804a30dff245bb6c6b872f",
		Parents:  []string{"ce8e0b86a1e9877f42fe9453ede418519115f367"},
		Headers:  map[string]string{"Author": "Eduardo Morais <companheiro.vermelho@example.com>"},
		Trailers: map[string][]string{"Signed-off-by": {"A <a@example.com>", "B <b@example.com>"}},
		Files: []FileEntry{
			{File: "aaa/otherthing", Action: "A", Modes: []string{"000000", "100644"}, Indexes: []string{"0000000...", "e69de29..."}, Added: "0", Removed: "0"},
		},
	}

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got["commit"] != c.Hash {
		t.Errorf("commit = %v", got["commit"])
	}
	if got["Author"] != c.Headers["Author"] {
		t.Errorf("Author = %v", got["Author"])
	}
	if refs, ok := got["refs"].([]any); !ok || len(refs) != 0 {
		t.Errorf("refs = %v, expected an empty list", got["refs"])
	}
	if signers, ok := got["Signed-off-by"].([]any); !ok || len(signers) != 2 {
		t.Errorf("Signed-off-by = %v", got["Signed-off-by"])
	}
	if _, ok := got["message"]; ok {
		t.Error("empty message should be omitted")
	}
	files, ok := got["files"].([]any)
	if !ok || len(files) != 1 {
		t.Fatalf("files = %v", got["files"])
	}
	f := files[0].(map[string]any)
	if f["file"] != "aaa/otherthing" || f["action"] != "A" {
		t.Errorf("file entry = %v", f)
	}
	if _, ok := f["newfile"]; ok {
		t.Error("empty newfile should be omitted")
	}
}

func TestRef_IsPeeled(t *testing.T) {
	if (Ref{RefName: "refs/tags/v1"}).IsPeeled() {
		t.Error("plain tag reported as peeled")
	}
	if !(Ref{RefName: "refs/tags/v1^{}"}).IsPeeled() {
		t.Error("peel entry not reported as peeled")
	}
}
