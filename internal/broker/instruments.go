package broker

import (
	"fmt"
	"os"
	"time"

	"github.com/gocarina/gocsv"

	"signal-trader/internal/models"
	"signal-trader/pkg/utils"
)

// csvInstrument mirrors one row of the broker's daily instrument dump.
type csvInstrument struct {
	InstrumentToken uint32  `csv:"instrument_token"`
	TradingSymbol   string  `csv:"tradingsymbol"`
	Name            string  `csv:"name"`
	Expiry          string  `csv:"expiry"`
	Strike          float64 `csv:"strike"`
	TickSize        float64 `csv:"tick_size"`
	LotSize         int     `csv:"lot_size"`
	InstrumentType  string  `csv:"instrument_type"`
	Segment         string  `csv:"segment"`
	Exchange        string  `csv:"exchange"`
}

// LoadInstrumentsCSV loads the instrument universe from a broker CSV dump.
// The dump lets contract resolution run without an extra API round-trip.
func LoadInstrumentsCSV(path string) ([]models.Instrument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening instrument dump: %w", err)
	}
	defer f.Close()

	var rows []*csvInstrument
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("parsing instrument dump: %w", err)
	}

	instruments := make([]models.Instrument, 0, len(rows))
	for _, row := range rows {
		var expiry time.Time
		if row.Expiry != "" {
			expiry, err = time.ParseInLocation("2006-01-02", row.Expiry, utils.IndiaLocation)
			if err != nil {
				continue
			}
		}
		instruments = append(instruments, models.Instrument{
			Token:     row.InstrumentToken,
			Symbol:    row.TradingSymbol,
			Name:      row.Name,
			Exchange:  models.Exchange(row.Exchange),
			Segment:   row.Segment,
			LotSize:   row.LotSize,
			TickSize:  row.TickSize,
			Expiry:    expiry,
			Strike:    row.Strike,
			InstrType: row.InstrumentType,
		})
	}

	return instruments, nil
}
