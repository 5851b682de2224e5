package refresh

// FeedResponse models the holiday feed document.
type FeedResponse struct {
	Holidays []FeedHoliday `json:"holidays"`
}

type FeedHoliday struct {
	Date string `json:"date"`
	Name string `json:"name"`
}
