package seasondomain

// SeasonEndedTopic is published once a season's rewards are written.
const SeasonEndedTopic = "ranked.season.ended.v1"

type SeasonEnded struct {
	SeasonID       string `json:"seasonId"`
	RewardsWritten int    `json:"rewardsWritten"`
}
