// Package inmemdb is an in-memory implementation of every repository. It is meant for tests & local runs.
package inmemdb

import (
	"context"
	"sync"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/certificate"
	"github.com/trezcool/ratiba/core/course"
	"github.com/trezcool/ratiba/core/enrollment"
	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/settings"
	"github.com/trezcool/ratiba/core/user"
)

type (
	DB struct {
		mutex sync.RWMutex
		txMu  sync.Mutex
		seq   int64
		tables
	}

	tables struct {
		users        map[string]user.User // {id: user}
		courses      map[string]course.Overview
		modes        map[string]course.Mode
		enrollments  map[string]enrollment.Enrollment
		certificates map[string]certificate.Certificate
		schedules    map[string]schedule.Schedule
		// unique index on schedule.EnrollmentID: {enrollmentID: scheduleID}
		scheduleByEnrollment map[string]string

		upgradeDeadlines       []settings.UpgradeDeadlineConfig
		courseUpgradeDeadlines []settings.CourseUpgradeDeadlineConfig
		refunds                []settings.RefundConfig
	}
)

func Open() *DB {
	return &DB{
		tables: tables{
			users:                make(map[string]user.User),
			courses:              make(map[string]course.Overview),
			modes:                make(map[string]course.Mode),
			enrollments:          make(map[string]enrollment.Enrollment),
			certificates:         make(map[string]certificate.Certificate),
			schedules:            make(map[string]schedule.Schedule),
			scheduleByEnrollment: make(map[string]string),
		},
	}
}

func (db *DB) nextID() int64 {
	db.seq++
	return db.seq
}

func (t tables) snapshot() tables {
	snap := tables{
		users:                make(map[string]user.User, len(t.users)),
		courses:              make(map[string]course.Overview, len(t.courses)),
		modes:                make(map[string]course.Mode, len(t.modes)),
		enrollments:          make(map[string]enrollment.Enrollment, len(t.enrollments)),
		certificates:         make(map[string]certificate.Certificate, len(t.certificates)),
		schedules:            make(map[string]schedule.Schedule, len(t.schedules)),
		scheduleByEnrollment: make(map[string]string, len(t.scheduleByEnrollment)),

		upgradeDeadlines:       append([]settings.UpgradeDeadlineConfig(nil), t.upgradeDeadlines...),
		courseUpgradeDeadlines: append([]settings.CourseUpgradeDeadlineConfig(nil), t.courseUpgradeDeadlines...),
		refunds:                append([]settings.RefundConfig(nil), t.refunds...),
	}
	for k, v := range t.users {
		v.Roles = append([]string(nil), v.Roles...)
		snap.users[k] = v
	}
	for k, v := range t.courses {
		snap.courses[k] = v
	}
	for k, v := range t.modes {
		snap.modes[k] = v
	}
	for k, v := range t.enrollments {
		v.Attributes = append([]enrollment.Attribute(nil), v.Attributes...)
		snap.enrollments[k] = v
	}
	for k, v := range t.certificates {
		snap.certificates[k] = v
	}
	for k, v := range t.schedules {
		snap.schedules[k] = v
	}
	for k, v := range t.scheduleByEnrollment {
		snap.scheduleByEnrollment[k] = v
	}
	return snap
}

// txExec is the executor handed to TxFuncs. Only the repositories of db understand it.
type txExec struct {
	core.DBExecutor
	db *DB
}

func (db *DB) inTx(exec []core.DBExecutor) bool {
	if len(exec) == 0 {
		return false
	}
	tx, ok := exec[0].(txExec)
	return ok && tx.db == db
}

// lockWrite locks db for a write and returns the unlock func.
// Writes outside a transaction wait for the running one: its rollback only undoes its own writes.
func (db *DB) lockWrite(exec []core.DBExecutor) func() {
	inTx := db.inTx(exec)
	if !inTx {
		db.txMu.Lock()
	}
	db.mutex.Lock()
	return func() {
		db.mutex.Unlock()
		if !inTx {
			db.txMu.Unlock()
		}
	}
}

type transactor struct {
	db *DB
}

var _ core.Transactor = (*transactor)(nil)

// NewTransactor returns a core.Transactor over db.
// Transactions are serialized with the writes made outside of them; a failed one restores every table
// as it was before it started. Writes inside fn must be given its exec, or they wait for fn forever.
func NewTransactor(db *DB) core.Transactor {
	return &transactor{db: db}
}

func (t *transactor) WithinTx(_ context.Context, fn core.TxFunc) (err error) {
	t.db.txMu.Lock()
	defer t.db.txMu.Unlock()

	t.db.mutex.RLock()
	snap := t.db.tables.snapshot()
	t.db.mutex.RUnlock()

	rollback := func() {
		t.db.mutex.Lock()
		t.db.tables = snap
		t.db.mutex.Unlock()
	}
	defer func() {
		if p := recover(); p != nil {
			rollback()
			panic(p)
		}
	}()

	if err = fn(txExec{db: t.db}); err != nil {
		rollback()
	}
	return err
}
