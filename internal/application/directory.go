package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Directory caches roster lookups so that every authenticated request does
// not hit the store. Entries expire after ttl; writes through PeopleService
// invalidate them immediately.
type Directory struct {
	people PersonRepository
	cache  *expirable.LRU[string, Person]
}

// NewDirectory returns a directory holding at most size entries for ttl.
func NewDirectory(people PersonRepository, size int, ttl time.Duration) *Directory {
	if size <= 0 {
		size = 256
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Directory{
		people: people,
		cache:  expirable.NewLRU[string, Person](size, nil, ttl),
	}
}

// Lookup returns the roster entry for email. Missing entries are not cached.
func (d *Directory) Lookup(ctx context.Context, email string) (Person, error) {
	key := strings.ToLower(strings.TrimSpace(email))
	if key == "" {
		return Person{}, ErrNotFound
	}
	if person, ok := d.cache.Get(key); ok {
		directoryLookupsTotal.WithLabelValues("hit").Inc()
		return clonePerson(person), nil
	}
	directoryLookupsTotal.WithLabelValues("miss").Inc()

	if d.people == nil {
		return Person{}, ErrNotFound
	}
	person, err := d.people.GetPerson(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Person{}, ErrNotFound
		}
		return Person{}, err
	}
	d.cache.Add(key, clonePerson(person))
	return person, nil
}

// Invalidate drops email from the cache.
func (d *Directory) Invalidate(email string) {
	d.cache.Remove(strings.ToLower(strings.TrimSpace(email)))
}

// Purge drops every cached entry.
func (d *Directory) Purge() {
	d.cache.Purge()
}

// Len reports the number of cached entries.
func (d *Directory) Len() int {
	return d.cache.Len()
}

func clonePerson(p Person) Person {
	if p.Channels != nil {
		p.Channels = append([]string(nil), p.Channels...)
	}
	return p
}
