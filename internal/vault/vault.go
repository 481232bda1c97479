package vault

import (
	"fmt"
	"os"
	"strings"

	"github.com/tobischo/gokeepasslib/v3"

	"github.com/velotec-gmbh/rmadesk/internal/apperr"
)

// Credentials is one resolved vault entry. Attachments carry binary data
// such as the SSH private key.
type Credentials struct {
	Username    string
	Password    string
	URL         string
	Notes       string
	Attachments map[string][]byte
}

// Vault is an opened KeePass database. The master passphrase is consumed
// during Open and never stored on the struct.
type Vault struct {
	db *gokeepasslib.Database
}

// Open unlocks the KDBX file at path with the master passphrase.
func Open(path, masterPassphrase string) (*Vault, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vault file: %w", err)
	}
	defer f.Close()

	db := gokeepasslib.NewDatabase()
	db.Credentials = gokeepasslib.NewPasswordCredentials(masterPassphrase)

	if err := gokeepasslib.NewDecoder(f).Decode(db); err != nil {
		// A wrong passphrase surfaces as a decode/HMAC failure.
		return nil, fmt.Errorf("unlock vault %s: %v: %w", path, err, apperr.ErrAuth)
	}
	if err := db.UnlockProtectedEntries(); err != nil {
		return nil, fmt.Errorf("unlock protected entries: %v: %w", err, apperr.ErrAuth)
	}

	return &Vault{db: db}, nil
}

// Resolve looks up an entry by its slash-separated group path, e.g.
// "RMA-Tool/SSH". The last path segment is the entry title, everything
// before it names nested groups starting below the root group.
func (v *Vault) Resolve(entryPath string) (*Credentials, error) {
	segments := strings.Split(strings.Trim(entryPath, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return nil, apperr.NotFound("vault entry", entryPath)
	}

	groupPath, title := segments[:len(segments)-1], segments[len(segments)-1]

	groups := v.db.Content.Root.Groups
	var current *gokeepasslib.Group
	for _, seg := range groupPath {
		current = nil
		for i := range groups {
			if groups[i].Name == seg {
				current = &groups[i]
				break
			}
		}
		if current == nil {
			return nil, apperr.NotFound("vault entry", entryPath)
		}
		groups = current.Groups
	}

	var entries []gokeepasslib.Entry
	if current != nil {
		entries = current.Entries
	} else {
		// Single-segment path: search every top-level group.
		for i := range v.db.Content.Root.Groups {
			entries = append(entries, v.db.Content.Root.Groups[i].Entries...)
		}
	}

	for i := range entries {
		if entries[i].GetTitle() == title {
			return v.toCredentials(&entries[i])
		}
	}

	return nil, apperr.NotFound("vault entry", entryPath)
}

func (v *Vault) toCredentials(entry *gokeepasslib.Entry) (*Credentials, error) {
	creds := &Credentials{
		Username:    entry.GetContent("UserName"),
		Password:    entry.GetPassword(),
		URL:         entry.GetContent("URL"),
		Notes:       entry.GetContent("Notes"),
		Attachments: make(map[string][]byte),
	}

	for _, ref := range entry.Binaries {
		bin := ref.Find(v.db)
		if bin == nil {
			continue
		}
		data, err := bin.GetContentBytes()
		if err != nil {
			return nil, fmt.Errorf("read attachment %s: %w", ref.Name, err)
		}
		creds.Attachments[ref.Name] = data
	}

	return creds, nil
}
