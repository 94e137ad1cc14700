package history

import (
	"errors"
)

// OpenSinks opens a file sink when dir is set and a database sink when dsn is
// set. Sinks opened before a failure are closed again.
func OpenSinks(dir, driver, dsn string) ([]Sink, error) {
	var sinks []Sink
	if dir != "" {
		fs, err := NewFileSink(dir)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, fs)
	}
	if dsn != "" {
		if driver == "" {
			driver = "sqlite"
		}
		db, err := OpenDB(driver, dsn)
		if err != nil {
			return nil, errors.Join(err, closeAll(sinks))
		}
		ds, err := NewDBSink(db)
		if err != nil {
			if sqlDB, dbErr := db.DB(); dbErr == nil {
				_ = sqlDB.Close()
			}
			return nil, errors.Join(err, closeAll(sinks))
		}
		sinks = append(sinks, ds)
	}
	return sinks, nil
}

func closeAll(sinks []Sink) error {
	var errs []error
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
