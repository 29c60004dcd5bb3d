package pagequery

import (
	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newGORMDryRun returns a postgres session that builds statements without
// executing them.
func newGORMDryRun() (*gorm.DB, error) {
	mockDB, _, err := sqlmock.New()
	if err != nil {
		return nil, err
	}

	dialector := postgres.New(postgres.Config{
		Conn: mockDB,
	})

	db, err := gorm.Open(dialector, &gorm.Config{DryRun: true})
	if err != nil {
		return nil, err
	}

	return db, nil
}
