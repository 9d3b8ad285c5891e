// Package jsondb stores the whole application state in one JSON document.
//
// Every write rewrites the document (temp file + rename). A single process
// owns the file; the last write wins.
package jsondb

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/lesson"
	"github.com/trezcool/darasa/core/user"
)

var ErrClosed = errors.New("database is closed")

type (
	DB struct {
		mu     sync.RWMutex
		path   string
		doc    document
		raw    []byte // last persisted document
		closed bool
	}

	document struct {
		Users   []userRecord   `json:"users"`
		Classes []lesson.Class `json:"classes"`
	}

	// userRecord persists the password hash that user.User hides from JSON.
	userRecord struct {
		user.User
		PasswordHash []byte `json:"password_hash"`
	}
)

func newUserRecord(usr user.User) userRecord {
	return userRecord{User: usr, PasswordHash: usr.PasswordHash}
}

func (rec userRecord) user() user.User {
	usr := rec.User
	usr.PasswordHash = rec.PasswordHash
	usr.Roles = append([]string(nil), rec.Roles...)
	return usr
}

// Open loads the document at path, creating an empty one if it does not exist.
func Open(path string) (*DB, error) {
	db := &DB{path: path}

	raw, err := ioutil.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(err, "creating database directory")
		}
		db.doc = document{Users: []userRecord{}, Classes: []lesson.Class{}}
		if err := db.persist(); err != nil {
			return nil, err
		}
		return db, nil
	case err != nil:
		return nil, errors.Wrap(err, "reading database")
	}

	if err := json.Unmarshal(raw, &db.doc); err != nil {
		return nil, errors.Wrapf(err, "decoding database %s", path)
	}
	if db.doc.Users == nil {
		db.doc.Users = []userRecord{}
	}
	if db.doc.Classes == nil {
		db.doc.Classes = []lesson.Class{}
	}
	db.raw = raw
	return db, nil
}

func (db *DB) Path() string { return db.path }

// Close makes any further access fail with ErrClosed.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.closed = true
	return nil
}

func (db *DB) read(fn func(doc *document) error) error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return ErrClosed
	}
	return fn(&db.doc)
}

// write applies fn and persists the document.
// fn must not touch the document when it fails; a failed save restores the
// last persisted state.
func (db *DB) write(fn func(doc *document) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrClosed
	}
	if err := fn(&db.doc); err != nil {
		return err
	}
	if err := db.persist(); err != nil {
		var prev document
		if db.raw != nil && json.Unmarshal(db.raw, &prev) == nil {
			db.doc = prev
		}
		return err
	}
	return nil
}

func (db *DB) persist() error {
	raw, err := json.MarshalIndent(db.doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding database")
	}

	tmp, err := ioutil.TempFile(filepath.Dir(db.path), filepath.Base(db.path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }() // no-op after rename

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "writing database")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "writing database")
	}
	if err := os.Rename(tmp.Name(), db.path); err != nil {
		return errors.Wrap(err, "saving database")
	}
	db.raw = raw
	return nil
}
