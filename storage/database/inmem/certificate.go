package inmemdb

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/certificate"
)

type certificateRepository struct {
	db *DB
}

var _ certificate.Repository = (*certificateRepository)(nil) // interface compliance check

func NewCertificateRepository(db *DB) certificate.Repository {
	return &certificateRepository{db: db}
}

func (repo *certificateRepository) CourseIDsWithCerts(_ context.Context, userID string, _ ...core.DBExecutor) (map[string]bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	courseIDs := make(map[string]bool)
	for _, cert := range repo.db.certificates {
		if cert.UserID == userID && cert.IsDownloadable() {
			courseIDs[cert.CourseID] = true
		}
	}
	return courseIDs, nil
}

func (repo *certificateRepository) GetCertificate(_ context.Context, userID, courseID string, _ ...core.DBExecutor) (certificate.Certificate, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, cert := range repo.db.certificates {
		if cert.UserID == userID && cert.CourseID == courseID {
			return cert, nil
		}
	}
	return certificate.Certificate{}, certificate.ErrNotFound
}

func (repo *certificateRepository) CreateCertificate(_ context.Context, cert certificate.Certificate, exec ...core.DBExecutor) (certificate.Certificate, error) {
	defer repo.db.lockWrite(exec)()

	if cert.ID == "" {
		cert.ID = uuid.NewString()
	}
	if cert.Created.IsZero() {
		cert.Created = time.Now()
	}
	cert.Created = cert.Created.UTC()
	repo.db.certificates[cert.ID] = cert
	return cert, nil
}
