package storage

import "time"

// SetClock overrides the time source for deterministic tests.
func (s *SQLBoardStore) SetClock(now func() time.Time) { s.now = now }

var MongoDatabaseName = mongoDatabaseName
