package dialogue

// State is the position of a session in the questionnaire.
type State int

const (
	Idle State = iota
	WaitDate
	WaitTime
	WaitSegment
	WaitTrack
	WaitKmPk
	WaitType
	WaitDescription
	WaitChairman
)

// Field names the value collected in a Wait state.
type Field string

const (
	FieldDate         Field = "date"
	FieldTime         Field = "time"
	FieldSegment      Field = "segment"
	FieldTrack        Field = "track"
	FieldKmPk         Field = "km_pk"
	FieldIncidentType Field = "incident_type"
	FieldDescription  Field = "description"
	FieldChairman     Field = "chairman"
)

type step struct {
	field  Field
	prompt string
}

// steps is indexed by State; steps[Idle] is unused.
var steps = [...]step{
	Idle:            {},
	WaitDate:        {FieldDate, "📅 Дата (ДД.MM.ГГГГ):"},
	WaitTime:        {FieldTime, "🕒 Время (ЧЧ:ММ):"},
	WaitSegment:     {FieldSegment, "🛤 Перегон/станция:"},
	WaitTrack:       {FieldTrack, "🔢 Путь:"},
	WaitKmPk:        {FieldKmPk, "📍 Км ПК:"},
	WaitType:        {FieldIncidentType, "⚠️ Вид происшествия:"},
	WaitDescription: {FieldDescription, "📝 Описание происшествия:"},
	WaitChairman:    {FieldChairman, "👨‍💼 Председатель комиссии по расследованию (ФИО):"},
}

// Field returns the field collected in s, or "" for Idle.
func (s State) Field() Field {
	if s <= Idle || s > WaitChairman {
		return ""
	}
	return steps[s].field
}

// Prompt returns the question asked when entering s.
func (s State) Prompt() string {
	if s <= Idle || s > WaitChairman {
		return ""
	}
	return steps[s].prompt
}

func (s State) next() State {
	if s >= WaitChairman {
		return Idle
	}
	return s + 1
}

func (s State) String() string {
	if s == Idle {
		return "idle"
	}
	if f := s.Field(); f != "" {
		return "wait_" + string(f)
	}
	return "unknown"
}
