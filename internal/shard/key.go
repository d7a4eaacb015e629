// Package shard partitions records into independent shard files keyed by
// time bucket and topic, and maintains a compact index over them.
package shard

import (
	"fmt"
	"strings"

	"github.com/coalton-labs/memvault/internal/model"
)

// Key identifies one shard: a coarse month bucket plus a topic bucket.
// Shard membership is derived once at write time and never re-derived
// implicitly; re-sharding is an explicit maintenance operation.
type Key struct {
	DateKey  string // YYYY-MM
	TopicKey string
}

// KeyFor derives the shard key for a record. The topic is the category
// when it is meaningful, otherwise the first tag longer than two
// characters that is not an @-mention, otherwise "general".
func KeyFor(rec *model.Record) Key {
	dateKey := rec.Created.Format("2006-01")

	topic := "general"
	if rec.Category != "" && rec.Category != "general" {
		topic = strings.ToLower(rec.Category)
	} else {
		for _, tag := range rec.Tags {
			if len(tag) > 2 && !strings.HasPrefix(tag, "@") {
				topic = strings.ToLower(tag)
				break
			}
		}
	}
	return Key{DateKey: dateKey, TopicKey: sanitizeTopic(topic)}
}

// Filename returns the shard's file name within the shards directory.
func (k Key) Filename() string {
	return fmt.Sprintf("shard_%s_%s.json", k.DateKey, k.TopicKey)
}

func (k Key) String() string {
	return k.DateKey + ":" + k.TopicKey
}

// sanitizeTopic keeps topic buckets filename-safe.
func sanitizeTopic(topic string) string {
	var b strings.Builder
	for _, r := range topic {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "general"
	}
	return b.String()
}
