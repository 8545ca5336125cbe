package db

import (
	"fmt"

	"github.com/callummance/momiji/guildmodels"
	"github.com/sirupsen/logrus"
	rethink "gopkg.in/gorethink/gorethink.v3"
)

const joinChannelsTable string = "join_channels"

//LoadChannelHints returns the stored guild to join channel mapping.
func (db *DBConnection) LoadChannelHints() (map[string]string, error) {
	res, err := rethink.Table(joinChannelsTable).Run(db.session)
	if err != nil {
		logrus.Warnf("Encountered error loading join channel hints from database: %v.", err)
		return nil, err
	}
	defer res.Close()
	var docs []guildmodels.JoinChannelHint
	if res.IsNil() {
		return map[string]string{}, nil
	}
	err = res.All(&docs)
	if err != nil {
		logrus.Warnf("Encountered error reading join channel hint documents: %v.", err)
		return nil, err
	}
	hints := make(map[string]string, len(docs))
	for _, doc := range docs {
		hints[doc.GuildID] = doc.ChannelID
	}
	return hints, nil
}

//SaveChannelHint records the join channel for a guild.
func (db *DBConnection) SaveChannelHint(guildID, channelID string) error {
	doc := guildmodels.JoinChannelHint{
		GuildID:   guildID,
		ChannelID: channelID,
	}
	resp, err := rethink.Table(joinChannelsTable).Insert(doc, rethink.InsertOpts{
		Conflict: "replace",
	}).RunWrite(db.session)
	if err != nil {
		logrus.Warnf("Encountered error writing join channel hint for guild %v to database: %v.", guildID, err)
		return err
	} else if resp.Errors > 0 {
		err := fmt.Errorf("%v", resp.FirstError)
		logrus.Warnf("Encountered error writing join channel hint for guild %v to database: %v.", guildID, err)
		return err
	}
	return nil
}
