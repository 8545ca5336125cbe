package db

import (
	"fmt"

	"github.com/callummance/momiji/guildmodels"
	"github.com/sirupsen/logrus"
	rethink "gopkg.in/gorethink/gorethink.v3"
)

const bindingsTable string = "bindings"

//LoadBindings returns every stored emoji role binding table, keyed by guild ID.
func (db *DBConnection) LoadBindings() (map[string]map[string]string, error) {
	res, err := rethink.Table(bindingsTable).Run(db.session)
	if err != nil {
		logrus.Warnf("Encountered error loading emoji role bindings from database: %v.", err)
		return nil, err
	}
	defer res.Close()
	var docs []guildmodels.GuildBindings
	if res.IsNil() {
		return map[string]map[string]string{}, nil
	}
	err = res.All(&docs)
	if err != nil {
		logrus.Warnf("Encountered error reading emoji role binding documents: %v.", err)
		return nil, err
	}
	tables := make(map[string]map[string]string, len(docs))
	for _, doc := range docs {
		if doc.EmojiRoles == nil {
			doc.EmojiRoles = map[string]string{}
		}
		tables[doc.GuildID] = doc.EmojiRoles
	}
	return tables, nil
}

//SaveGuildBindings replaces the stored binding table for a single guild.
func (db *DBConnection) SaveGuildBindings(guildID string, bindings map[string]string) error {
	doc := guildmodels.GuildBindings{
		GuildID:    guildID,
		EmojiRoles: bindings,
	}
	resp, err := rethink.Table(bindingsTable).Insert(doc, rethink.InsertOpts{
		Conflict: "replace",
	}).RunWrite(db.session)
	if err != nil {
		logrus.Warnf("Encountered error writing emoji role bindings for guild %v to database: %v.", guildID, err)
		return err
	} else if resp.Errors > 0 {
		err := fmt.Errorf("%v", resp.FirstError)
		logrus.Warnf("Encountered error writing emoji role bindings for guild %v to database: %v.", guildID, err)
		return err
	}
	return nil
}
