// Package database executes SQL statements against PostgreSQL through three
// facilities that all run the hook pairs registered for HookClass/OpExecute:
//
//   - Client.Exec, Client.Query and prepared Stmt values over database/sql
//     with the lib/pq driver
//   - QueryTracer, installed on pgx connections when Connection.Driver is
//     DriverPGX
//   - GormPlugin, installed on the gorm handle returned by Client.Gorm
//
// The receiver of every Execute call implements Statement, so exit actions
// can read the query text. gorm builds its SQL while the statement runs;
// QueryString is empty at entry and holds the final SQL at exit.
//
// Basic usage:
//
//	client, err := database.NewClient(database.Config{
//	    Connection: database.Connection{
//	        Host: "localhost", Port: "5432",
//	        User: "app", Password: "secret", DbName: "app",
//	        SSLMode: "disable",
//	    },
//	}, hooks, log)
//
//	_, err = client.Exec(ctx, "UPDATE orders SET state = $1 WHERE id = $2", "paid", id)
//
//	var orders []Order
//	err = client.Gorm(ctx).Where("state = ?", "paid").Find(&orders).Error
//
// The client pings the database every HealthCheckInterval and reconnects
// both pools when the ping fails. FXModule wires this into the application
// lifecycle.
package database
