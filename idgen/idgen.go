// Package idgen issues identifiers for new rows.
package idgen

import (
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sony/sonyflake"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Generator hands out time ordered numeric ids. Ids of one generator are strictly
// increasing, so ordering by id descending lists the newest rows first.
type Generator struct {
	flake *sonyflake.Sonyflake
}

// NewGenerator builds a generator for machineID, zero derives one from the host name and pid.
func NewGenerator(machineID uint16) (*Generator, error) {
	if machineID == 0 {
		machineID = processMachineID()
	}
	flake := sonyflake.NewSonyflake(sonyflake.Settings{
		StartTime: epoch,
		MachineID: func() (uint16, error) { return machineID, nil },
	})
	if flake == nil {
		return nil, errors.New("failed to initialize id generator")
	}
	return &Generator{flake: flake}, nil
}

func processMachineID() uint16 {
	host, _ := os.Hostname()
	h := fnv.New32a()
	_, _ = h.Write([]byte(host + "/" + strconv.Itoa(os.Getpid())))
	return uint16(h.Sum32())
}

func (g *Generator) NextID() int64 {
	id, err := g.flake.NextID()
	if err != nil {
		panic(err)
	}
	return int64(id)
}

// NextString returns prefix-<id>.
func (g *Generator) NextString(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, g.NextID())
}

var (
	defaultOnce sync.Once
	defaultGen  *Generator
)

// Default is the process wide generator.
func Default() *Generator {
	defaultOnce.Do(func() {
		g, err := NewGenerator(0)
		if err != nil {
			panic(err)
		}
		defaultGen = g
	})
	return defaultGen
}

func NewItemID() string {
	return "item-" + uuid.New().String()
}
