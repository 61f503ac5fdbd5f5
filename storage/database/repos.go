package database

import (
	"database/sql"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/user"
	inmemdb "github.com/trezcool/masomo/storage/database/inmem"
	sqlxrepos "github.com/trezcool/masomo/storage/database/sqlx"
)

const engineInMem = "inmem"

// Repositories are the repositories of the configured database engine.
type Repositories struct {
	DB   *sql.DB // nil with the in-memory engine
	User user.Repository
}

// OpenRepositories opens the configured database: Postgres, or an empty in-memory one
// when Database.Engine is "inmem".
func OpenRepositories(conf *core.Config) (*Repositories, error) {
	if conf.Database.Engine == engineInMem {
		return &Repositories{User: inmemdb.NewUserRepository(inmemdb.Open())}, nil
	}

	db, err := Open(conf)
	if err != nil {
		return nil, err
	}
	return &Repositories{DB: db, User: sqlxrepos.NewUserRepository(db)}, nil
}

func (r *Repositories) Close() error {
	if r.DB == nil {
		return nil
	}
	return r.DB.Close()
}
