package models

import "time"

// PlayRecord is one track started in a guild, stored in the "history" collection
type PlayRecord struct {
	GuildID     string        `bson:"guildId" json:"guildId"`
	Title       string        `bson:"title" json:"title"`
	Author      string        `bson:"author" json:"author"`
	URI         string        `bson:"uri" json:"uri"`
	Source      string        `bson:"source" json:"source"`
	Duration    time.Duration `bson:"duration" json:"duration"`
	RequesterID string        `bson:"requesterId" json:"requesterId"`
	StartedAt   time.Time     `bson:"startedAt" json:"startedAt"`
}
