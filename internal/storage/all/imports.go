// Package all wires every built-in storage backend into the storage factory.
// Importing it (blank) runs each backend's init registration, making the
// kinds "postgres", "mysql", "mssql" and "sqlite" available to storage.New
// without the caller importing drivers directly.
package all

import (
	_ "vcfdb/internal/storage/mssql"
	_ "vcfdb/internal/storage/mysql"
	_ "vcfdb/internal/storage/postgres"
	_ "vcfdb/internal/storage/sqlite"
)
