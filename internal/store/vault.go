package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/zarlcorp/core/pkg/zcrypto"
	"github.com/zarlcorp/core/pkg/zfilesystem"
	"github.com/zarlcorp/core/pkg/zstore"
	"github.com/zarlcorp/zroster/internal/student"
)

const (
	seqKey = "students"

	// vaultMarker is written once a vault has been created in a directory.
	vaultMarker = ".zroster-vault"
)

// ErrWrongPassword is returned by OpenVault when the master password does
// not open the vault.
var ErrWrongPassword = zstore.ErrWrongPassword

// sequence hands out student IDs so deleted IDs are never reused.
type sequence struct {
	Next int64 `json:"next"`
}

// Vault stores students in an encrypted zstore under a master password.
type Vault struct {
	store    *zstore.Store
	students *zstore.Collection[student.Student]
	seq      *zstore.Collection[sequence]
}

// OpenVault opens or initializes the vault in dir. The password bytes are
// wiped before returning.
func OpenVault(dir string, password []byte) (*Vault, error) {
	defer zcrypto.Erase(password)

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("open vault: create data dir: %w", err)
	}

	s, err := zstore.Open(zfilesystem.NewOSFileSystem(dir), password)
	if err != nil {
		return nil, fmt.Errorf("open vault: %w", err)
	}

	students, err := zstore.NewCollection[student.Student](s, "students")
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("open vault: %w", err)
	}

	seq, err := zstore.NewCollection[sequence](s, "sequences")
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("open vault: %w", err)
	}

	if !VaultExists(dir) {
		if err := os.WriteFile(filepath.Join(dir, vaultMarker), nil, 0o600); err != nil {
			s.Close()
			return nil, fmt.Errorf("open vault: write marker: %w", err)
		}
	}

	return &Vault{store: s, students: students, seq: seq}, nil
}

// VaultExists reports whether a vault has been created in dir.
func VaultExists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, vaultMarker))
	return err == nil
}

// Get scans the collection rather than using a keyed lookup so a missing
// record is reported as ErrNotFound and not as a read failure.
func (v *Vault) Get(_ context.Context, id int64) (student.Student, error) {
	all, err := v.students.List()
	if err != nil {
		return student.Student{}, fmt.Errorf("get student %d: %w", id, err)
	}
	for _, s := range all {
		if s.ID == id {
			return s, nil
		}
	}
	return student.Student{}, ErrNotFound
}

func (v *Vault) List(_ context.Context) ([]student.Student, error) {
	all, err := v.students.List()
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}

	// zstore.List does not guarantee order
	sort.Slice(all, func(i, j int) bool {
		if all[i].Name != all[j].Name {
			return all[i].Name < all[j].Name
		}
		return all[i].ID < all[j].ID
	})
	return all, nil
}

func (v *Vault) Insert(ctx context.Context, s student.Student) (student.Student, error) {
	id, err := v.nextID(ctx)
	if err != nil {
		return student.Student{}, err
	}

	s.ID = id
	if err := v.students.Put(studentKey(id), s); err != nil {
		return student.Student{}, err
	}
	return s, nil
}

func (v *Vault) Update(ctx context.Context, s student.Student) error {
	if _, err := v.Get(ctx, s.ID); err != nil {
		return err
	}
	return v.students.Put(studentKey(s.ID), s)
}

func (v *Vault) Delete(ctx context.Context, s student.Student) error {
	if _, err := v.Get(ctx, s.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	return v.students.Delete(studentKey(s.ID))
}

// Close erases the vault key from memory.
func (v *Vault) Close() error {
	v.store.Close()
	return nil
}

func (v *Vault) nextID(ctx context.Context) (int64, error) {
	cur, err := v.seq.Get(seqKey)
	if err != nil {
		// no sequence yet: continue after the highest stored ID
		all, lerr := v.List(ctx)
		if lerr != nil {
			return 0, lerr
		}
		cur = sequence{Next: 1}
		for _, s := range all {
			if s.ID >= cur.Next {
				cur.Next = s.ID + 1
			}
		}
	}

	id := cur.Next
	if err := v.seq.Put(seqKey, sequence{Next: id + 1}); err != nil {
		return 0, fmt.Errorf("advance sequence: %w", err)
	}
	return id, nil
}

func studentKey(id int64) string {
	return strconv.FormatInt(id, 10)
}
