package calendar

import (
	"errors"
	"fmt"
	"time"
)

// Layout - формат календарной даты при хранении и передаче.
const Layout = "2006-01-02"

// ErrInvalidDate возвращается при разборе некорректной даты.
var ErrInvalidDate = errors.New("invalid calendar date")

// Date представляет календарную дату без времени суток и часового пояса.
// Нулевое значение означает отсутствие даты.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// Of возвращает календарную дату момента t в часовом поясе loc.
// Если loc равен nil, используется часовой пояс самого t.
func Of(t time.Time, loc *time.Location) Date {
	if loc != nil {
		t = t.In(loc)
	}
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// New собирает дату из компонентов, нормализуя переполнения (31 апреля -> 1 мая).
func New(year int, month time.Month, day int) Date {
	return Of(time.Date(year, month, day, 0, 0, 0, 0, time.UTC), time.UTC)
}

// Parse разбирает дату в формате Layout.
func Parse(s string) (Date, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Of(t, time.UTC), nil
}

// IsZero сообщает, что дата не задана.
func (d Date) IsZero() bool {
	return d == Date{}
}

// Time возвращает полночь даты в UTC.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays сдвигает дату на n календарных дней.
func (d Date) AddDays(n int) Date {
	return New(d.Year, d.Month, d.Day+n)
}

// String возвращает дату в формате Layout.
func (d Date) String() string {
	return d.Time().Format(Layout)
}

// DaysBetween возвращает количество календарных дней от from до to.
// Результат отрицателен, если to раньше from.
func DaysBetween(from, to Date) int {
	return to.dayNumber() - from.dayNumber()
}

// dayNumber возвращает номер дня в пролептическом григорианском календаре
// (0 соответствует 1970-01-01). Считается без time.Duration, поэтому
// не переполняется на датах, далеких друг от друга.
func (d Date) dayNumber() int {
	n := New(d.Year, d.Month, d.Day)

	y := n.Year
	m := int(n.Month)
	if m <= 2 {
		y--
	}

	era := y / 400
	if y < 0 && y%400 != 0 {
		era--
	}
	yoe := y - era*400
	mp := (m + 9) % 12
	doy := (153*mp+2)/5 + n.Day - 1
	doe := yoe*365 + yoe/4 - yoe/100 + doy

	return era*146097 + doe - 719468
}

// Ptr возвращает указатель на копию d; удобно для необязательных полей.
func Ptr(d Date) *Date {
	return &d
}

// Equal сравнивает необязательную дату с d. Отсутствующая дата не равна никакой.
func Equal(p *Date, d Date) bool {
	return p != nil && *p == d
}
