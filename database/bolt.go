package database

import (
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const boltBucketKV = "kv"

type BoltStore struct {
	storage *bbolt.DB
}

func NewBolt(path string) (*BoltStore, error) {
	instance, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	if err := instance.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(boltBucketKV))
		return err
	}); err != nil {
		_ = instance.Close()

		return nil, err
	}

	return &BoltStore{storage: instance}, nil
}

func (b *BoltStore) Get(key string) ([]byte, error) {
	var value []byte
	err := b.storage.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(boltBucketKV)).Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		// bbolt memory is only valid inside the transaction
		value = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (b *BoltStore) Set(key string, value []byte) error {
	err := b.storage.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(boltBucketKV)).Put([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (b *BoltStore) Remove(key string) error {
	return b.storage.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(boltBucketKV)).Delete([]byte(key))
	})
}

func (b *BoltStore) Close() error {
	return b.storage.Close()
}
