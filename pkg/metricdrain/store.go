// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package metricdrain

import (
	"fmt"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/dgraph-io/badger/v4"
)

// namespace is one of the two independent ordered key spaces (cluster-level,
// backend-level). It is a thin wrapper around a badger.DB run in in-memory
// mode, with an OpenInMemory/db.Update/db.View access idiom.
type namespace struct {
	db *badger.DB
}

// openNamespace opens a fresh, ephemeral ordered key-value store. dataDir,
// when non-empty, opens a persistent badger directory instead — an
// escape hatch for inspecting the store with external badger tooling during
// development, not a durability promise.
func openNamespace(dataDir string) (*namespace, error) {
	opts := badger.DefaultOptions(dataDir)
	if dataDir == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: opening namespace: %s", ErrStore, err)
	}
	return &namespace{db: db}, nil
}

func (n *namespace) close() error {
	return n.db.Close()
}

// dropAll wipes every key in the namespace, used by the diagnostic, full
// reset clear path that drops everything unconditionally.
func (n *namespace) dropAll() error {
	if err := n.db.DropAll(); err != nil {
		return fmt.Errorf("%w: drop_all: %s", ErrStore, err)
	}
	return nil
}

// get returns the value at k, or (nil, false, nil) if k is absent.
func (n *namespace) get(k string) (value []byte, ok bool, err error) {
	err = n.db.View(func(txn *badger.Txn) error {
		item, gerr := txn.Get([]byte(k))
		if gerr == badger.ErrKeyNotFound {
			return nil
		}
		if gerr != nil {
			return gerr
		}
		value, gerr = item.ValueCopy(nil)
		if gerr != nil {
			return gerr
		}
		ok = true
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("%w: get: %s", ErrStore, err)
	}
	return value, ok, nil
}

func (n *namespace) insert(k string, value []byte) error {
	err := n.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(k), value)
	})
	if err != nil {
		return fmt.Errorf("%w: insert: %s", ErrStore, err)
	}
	return nil
}

func (n *namespace) remove(k string) error {
	err := n.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(k))
	})
	if err != nil {
		return fmt.Errorf("%w: remove: %s", ErrStore, err)
	}
	return nil
}

// kv is one row returned from a range/iteration call.
type kv struct {
	Key   string
	Value []byte
}

// rangeScan returns every row with lo <= key < hi, in ascending order
// (lexicographic, half-open).
func (n *namespace) rangeScan(lo, hi string) ([]kv, error) {
	var rows []kv
	err := n.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(lo)); it.Valid(); it.Next() {
			item := it.Item()
			k := string(item.KeyCopy(nil))
			if k >= hi {
				break
			}
			v, verr := item.ValueCopy(nil)
			if verr != nil {
				return verr
			}
			rows = append(rows, kv{Key: k, Value: v})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: range: %s", ErrStore, err)
	}
	return rows, nil
}

// getLT returns the largest key strictly less than bound, if any.
func (n *namespace) getLT(bound string) (row kv, ok bool, err error) {
	derr := n.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// badger's reverse iterator seeks to the largest key <= the
		// seek key; append a byte higher than any legal key byte so
		// that "< bound" is satisfied even when bound itself exists.
		seekFrom := append([]byte(bound), 0xFF)
		for it.Seek(seekFrom); it.Valid(); it.Next() {
			item := it.Item()
			k := string(item.KeyCopy(nil))
			if k >= bound {
				continue
			}
			v, verr := item.ValueCopy(nil)
			if verr != nil {
				return verr
			}
			row = kv{Key: k, Value: v}
			ok = true
			return nil
		}
		return nil
	})
	if derr != nil {
		return kv{}, false, fmt.Errorf("%w: get_lt: %s", ErrStore, derr)
	}
	return row, ok, nil
}

// getGT returns the smallest key strictly greater than bound, if any.
func (n *namespace) getGT(bound string) (row kv, ok bool, err error) {
	derr := n.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		seekFrom := append([]byte(bound), 0x00)
		for it.Seek(seekFrom); it.Valid(); it.Next() {
			item := it.Item()
			k := string(item.KeyCopy(nil))
			if k <= bound {
				continue
			}
			v, verr := item.ValueCopy(nil)
			if verr != nil {
				return verr
			}
			row = kv{Key: k, Value: v}
			ok = true
			return nil
		}
		return nil
	})
	if derr != nil {
		return kv{}, false, fmt.Errorf("%w: get_gt: %s", ErrStore, derr)
	}
	return row, ok, nil
}

// first returns the smallest key in the namespace.
func (n *namespace) first() (row kv, ok bool, err error) {
	derr := n.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		it.Rewind()
		if !it.Valid() {
			return nil
		}
		item := it.Item()
		k := string(item.KeyCopy(nil))
		v, verr := item.ValueCopy(nil)
		if verr != nil {
			return verr
		}
		row, ok = kv{Key: k, Value: v}, true
		return nil
	})
	if derr != nil {
		return kv{}, false, fmt.Errorf("%w: first: %s", ErrStore, derr)
	}
	return row, ok, nil
}

// last returns the largest key in the namespace.
func (n *namespace) last() (row kv, ok bool, err error) {
	derr := n.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()
		it.Rewind()
		if !it.Valid() {
			return nil
		}
		item := it.Item()
		k := string(item.KeyCopy(nil))
		v, verr := item.ValueCopy(nil)
		if verr != nil {
			return verr
		}
		row, ok = kv{Key: k, Value: v}, true
		return nil
	})
	if derr != nil {
		return kv{}, false, fmt.Errorf("%w: last: %s", ErrStore, derr)
	}
	return row, ok, nil
}

// orderedStore owns the two independent namespaces, cluster-level and
// backend-level.
type orderedStore struct {
	cluster *namespace
	backend *namespace
}

func openOrderedStore(cfg Config) (*orderedStore, error) {
	clusterDir, backendDir := "", ""
	if cfg.DataDir != "" {
		clusterDir = cfg.DataDir + "/cluster"
		backendDir = cfg.DataDir + "/backend"
	}

	cluster, err := openNamespace(clusterDir)
	if err != nil {
		return nil, err
	}
	backend, err := openNamespace(backendDir)
	if err != nil {
		cluster.close()
		return nil, err
	}
	return &orderedStore{cluster: cluster, backend: backend}, nil
}

func (s *orderedStore) close() {
	if err := s.cluster.close(); err != nil {
		cclog.Errorf("[METRICDRAIN]> closing cluster namespace: %s", err.Error())
	}
	if err := s.backend.close(); err != nil {
		cclog.Errorf("[METRICDRAIN]> closing backend namespace: %s", err.Error())
	}
}

// namespaceFor returns the namespace that holds a given scope's rows.
func (s *orderedStore) namespaceFor(scope MetricScope) *namespace {
	if scope == ScopeClusterBackend {
		return s.backend
	}
	return s.cluster
}
