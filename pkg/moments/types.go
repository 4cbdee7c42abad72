package moments

// Moment is one journaled entry.
type Moment struct {
	ID            string   `json:"id"`
	Content       string   `json:"content"`
	Tags          []string `json:"tags"`
	Images        []string `json:"images,omitempty"` // inline data URLs
	CreatedAt     int64    `json:"createdAt"`        // epoch milliseconds
	DayStr        string   `json:"dayStr"`           // YYYY-MM-DD, fixed at creation
	IsPublic      bool     `json:"isPublic"`
	SunshineCount int      `json:"sunshineCount"`
	AuthorAlias   string   `json:"authorAlias"`
	// IsMine is decided by the store on every read and never persisted.
	IsMine bool `json:"isMine"`
}

// UserStats is derived on read. TotalMoments and TotalSunshine always reflect
// the live collection; StreakDays and LastRecordDate advance only on save.
type UserStats struct {
	StreakDays     int    `json:"streakDays"`
	TotalMoments   int    `json:"totalMoments"`
	TotalSunshine  int    `json:"totalSunshine"`
	LastRecordDate string `json:"lastRecordDate"`
}

// UserProfile is the single optional profile slot.
type UserProfile struct {
	NickName  string `json:"nickName"`
	AvatarURL string `json:"avatarUrl"`
}

// Patch lists the mutable fields of a Moment. Nil fields are left untouched.
type Patch struct {
	IsPublic      *bool
	SunshineCount *int
}

func (p Patch) apply(m *Moment) {
	if p.IsPublic != nil {
		m.IsPublic = *p.IsPublic
	}
	if p.SunshineCount != nil {
		m.SunshineCount = *p.SunshineCount
	}
}

// momentRecord is the persisted form of a Moment. It has no IsMine field.
type momentRecord struct {
	ID            string   `json:"id"`
	Content       string   `json:"content"`
	Tags          []string `json:"tags"`
	Images        []string `json:"images,omitempty"`
	CreatedAt     int64    `json:"createdAt"`
	DayStr        string   `json:"dayStr"`
	IsPublic      bool     `json:"isPublic"`
	SunshineCount int      `json:"sunshineCount"`
	AuthorAlias   string   `json:"authorAlias"`
}

func toRecords(ms []Moment) []momentRecord {
	records := make([]momentRecord, len(ms))
	for i, m := range ms {
		records[i] = momentRecord{
			ID:            m.ID,
			Content:       m.Content,
			Tags:          m.Tags,
			Images:        m.Images,
			CreatedAt:     m.CreatedAt,
			DayStr:        m.DayStr,
			IsPublic:      m.IsPublic,
			SunshineCount: m.SunshineCount,
			AuthorAlias:   m.AuthorAlias,
		}
	}
	return records
}

func fromRecords(records []momentRecord) []Moment {
	ms := make([]Moment, len(records))
	for i, r := range records {
		ms[i] = Moment{
			ID:            r.ID,
			Content:       r.Content,
			Tags:          r.Tags,
			Images:        r.Images,
			CreatedAt:     r.CreatedAt,
			DayStr:        r.DayStr,
			IsPublic:      r.IsPublic,
			SunshineCount: r.SunshineCount,
			AuthorAlias:   r.AuthorAlias,
			IsMine:        true,
		}
	}
	return ms
}
