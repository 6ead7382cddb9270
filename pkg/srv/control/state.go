/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package control

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.etcd.io/bbolt"

	"github.com/winsystems/go-pcmmio/pkg/config"
	"github.com/winsystems/go-pcmmio/pkg/log"
	"github.com/winsystems/go-pcmmio/pkg/srv/control/ifc"
)

const (
	BucketNamePrefix = "dio_"
)

// EventState is the journal of delivered DIO events, one bucket per card.
// Keys are ULIDs so a bucket iterates in delivery order.
type EventState struct {
	context.Context
	DB       *bbolt.DB
	capacity int

	mu     sync.Mutex
	counts map[string]int
}

func NewEventState(ctx context.Context, cfg *config.Config) (*EventState, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(cfg.DBPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	counts := map[string]int{}
	if err = db.Update(func(tx *bbolt.Tx) error {
		for _, device := range cfg.Devices {
			b, err := tx.CreateBucketIfNotExists([]byte(bucketName(device.Name)))
			if err != nil {
				return err
			}
			counts[device.Name] = b.Stats().KeyN
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &EventState{
		Context:  ctx,
		DB:       db,
		capacity: config.DefaultJournalCapacity,
		counts:   counts,
	}, nil
}

func bucketName(deviceName string) string {
	return fmt.Sprintf("%s%s", BucketNamePrefix, deviceName)
}

type errBucketNotFound struct {
	name string
}

func (e errBucketNotFound) Error() string {
	return fmt.Sprintf("Bucket not found: %s", e.name)
}

// Close ...
func (s *EventState) Close() {
	s.DB.Close()
}

// Record appends an event and drops the oldest ones above capacity
func (s *EventState) Record(deviceName string, bit int, at time.Time) (*ifc.DioEvent, error) {
	id := ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy())
	event := &ifc.DioEvent{
		ID:     id.String(),
		Device: deviceName,
		Bit:    bit,
		Time:   at,
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	log.Debug("[%s] Journal DIO event: bit %d id %s", deviceName, bit, event.ID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.DB.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName(deviceName)))
		if b == nil {
			return errBucketNotFound{name: bucketName(deviceName)}
		}
		if err := b.Put(id[:], data); err != nil {
			return err
		}
		n := s.counts[deviceName] + 1
		c := b.Cursor()
		for n > s.capacity {
			if k, _ := c.First(); k == nil {
				break
			}
			if err := c.Delete(); err != nil {
				return err
			}
			n--
		}
		s.counts[deviceName] = n
		return nil
	}); err != nil {
		return nil, err
	}
	return event, nil
}

// Events returns the last limit events of a device, oldest first.
// A limit of 0 or less returns all of them.
func (s *EventState) Events(deviceName string, limit int) ([]*ifc.DioEvent, error) {
	var events []*ifc.DioEvent
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName(deviceName)))
		if b == nil {
			return errBucketNotFound{name: bucketName(deviceName)}
		}
		c := b.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(events) == limit {
				break
			}
			event := &ifc.DioEvent{}
			if err := json.Unmarshal(v, event); err != nil {
				return err
			}
			events = append(events, event)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}
