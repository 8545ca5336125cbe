package db

import (
	"fmt"

	"github.com/callummance/momiji/guildmodels"
	"github.com/sirupsen/logrus"
	rethink "gopkg.in/gorethink/gorethink.v3"
)

const snapshotsTable string = "snapshots"

//LoadSnapshots returns every stored reactor snapshot, keyed by guild ID.
func (db *DBConnection) LoadSnapshots() (map[string]map[string][]string, error) {
	res, err := rethink.Table(snapshotsTable).Run(db.session)
	if err != nil {
		logrus.Warnf("Encountered error loading reactor snapshots from database: %v.", err)
		return nil, err
	}
	defer res.Close()
	var docs []guildmodels.GuildSnapshot
	if res.IsNil() {
		return map[string]map[string][]string{}, nil
	}
	err = res.All(&docs)
	if err != nil {
		logrus.Warnf("Encountered error reading reactor snapshot documents: %v.", err)
		return nil, err
	}
	snapshots := make(map[string]map[string][]string, len(docs))
	for _, doc := range docs {
		if doc.Reactors == nil {
			doc.Reactors = map[string][]string{}
		}
		snapshots[doc.GuildID] = doc.Reactors
	}
	return snapshots, nil
}

//SaveGuildSnapshot replaces the stored reactor snapshot for a single guild.
func (db *DBConnection) SaveGuildSnapshot(guildID string, reactors map[string][]string) error {
	doc := guildmodels.GuildSnapshot{
		GuildID:  guildID,
		Reactors: reactors,
	}
	resp, err := rethink.Table(snapshotsTable).Insert(doc, rethink.InsertOpts{
		Conflict: "replace",
	}).RunWrite(db.session)
	if err != nil {
		logrus.Warnf("Encountered error writing reactor snapshot for guild %v to database: %v.", guildID, err)
		return err
	} else if resp.Errors > 0 {
		err := fmt.Errorf("%v", resp.FirstError)
		logrus.Warnf("Encountered error writing reactor snapshot for guild %v to database: %v.", guildID, err)
		return err
	}
	return nil
}
