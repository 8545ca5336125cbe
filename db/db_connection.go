package db

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	rethink "gopkg.in/gorethink/gorethink.v3"
)

const dbAddrEnvVar string = "MOMIJI_DB_ADDR"
const dbNameDefault string = "momiji"
const dbNameEnvVar string = "MOMIJI_DB_NAME"
const baseDbPoolConnections int = 2
const maxDbPoolConnections int = 20

//DBConnection contains a handle to the database
type DBConnection struct {
	session *rethink.Session
}

//Init creates a new connection pool for the database at the address provided by the relevant environment variable
func Init() (*DBConnection, error) {
	//Get DB name from env
	dbName, exists := os.LookupEnv(dbNameEnvVar)
	if !exists {
		logrus.Warnf("DB name was not provided, falling back to default `%v`", dbNameDefault)
		dbName = dbNameDefault
	}
	//Get DB address from env
	rethinkDBAddr, exists := os.LookupEnv(dbAddrEnvVar)
	if !exists {
		logrus.Errorf("`%v` env variable was not set.", dbAddrEnvVar)
		return nil, fmt.Errorf("`%v` env variable was not set", dbAddrEnvVar)
	}
	//Create new connection pool to db
	session, err := rethink.Connect(rethink.ConnectOpts{
		Address:    rethinkDBAddr,
		Database:   dbName,
		InitialCap: baseDbPoolConnections,
		MaxOpen:    maxDbPoolConnections,
	})
	if err != nil {
		logrus.Errorf("Failed to create connection to rethinkdb instance at address %v because %v.", rethinkDBAddr, err)
		return nil, fmt.Errorf("failed to create connection to rethinkdb instance at address %v because %v", rethinkDBAddr, err)
	}

	res := DBConnection{
		session: session,
	}

	//Ensure database and required tables exist, and wait for it all to be ready
	res.CreateDatabase(dbName)
	res.CreateTables()

	return &res, nil
}

//Close cleanly terminates the database connection
func (db *DBConnection) Close() {
	logrus.Info("Terminating DB connection...")
	_ = db.session.Close()
}

//CreateTables ensures all tables needed exist.
func (db *DBConnection) CreateTables() {
	//emoji role bindings table
	_, err := rethink.TableCreate(bindingsTable, rethink.TableCreateOpts{
		PrimaryKey: "id",
	}).RunWrite(db.session)
	if err != nil {
		logrus.Warnf("Failed to create bindings table due to error %v", err)
	}
	//reactor snapshots table
	_, err = rethink.TableCreate(snapshotsTable, rethink.TableCreateOpts{
		PrimaryKey: "id",
	}).RunWrite(db.session)
	if err != nil {
		logrus.Warnf("Failed to create snapshots table due to error %v", err)
	}
	//join channel hints table
	_, err = rethink.TableCreate(joinChannelsTable, rethink.TableCreateOpts{
		PrimaryKey: "id",
	}).RunWrite(db.session)
	if err != nil {
		logrus.Warnf("Failed to create join channels table due to error %v", err)
	}
	//Wait for all tables
	rethink.Table(bindingsTable).Wait()
	rethink.Table(snapshotsTable).Wait()
	rethink.Table(joinChannelsTable).Wait()
}

//WaitTablesRead blocks until every table is ready to serve reads.
func (db *DBConnection) WaitTablesRead() {
	waitOpts := rethink.WaitOpts{
		WaitFor: "ready_for_reads",
	}
	rethink.Table(bindingsTable).Wait(waitOpts)
	rethink.Table(snapshotsTable).Wait(waitOpts)
	rethink.Table(joinChannelsTable).Wait(waitOpts)
}

//CreateDatabase ensures the momiji database exists
func (db *DBConnection) CreateDatabase(dbName string) {
	_, err := rethink.DBCreate(dbName).RunWrite(db.session)
	if err != nil {
		logrus.Warnf("Failed to create %v DB due to error %v", dbName, err)
	}
	rethink.DB(dbName).Wait()
}
