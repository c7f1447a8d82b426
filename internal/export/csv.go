package export

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/zjrosen/mandelgrid/internal/log"
	"github.com/zjrosen/mandelgrid/internal/sample"
)

// CSVHeader is the first record of every csv dataset.
var CSVHeader = []string{"re", "im", "value"}

// CSVExporter writes re,im,value rows. Diverged samples carry NaN.
type CSVExporter struct {
	Path string
}

// Export writes samples to e.Path, replacing any existing file.
func (e *CSVExporter) Export(ctx context.Context, samples []sample.Sample) (err error) {
	f, err := createFile(e.Path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing csv: %w", cerr)
		}
	}()

	buf := bufio.NewWriter(f)
	w := csv.NewWriter(buf)
	if err := w.Write(CSVHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	record := make([]string, 3)
	for i, s := range samples {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		v, ok, err := value(s)
		if err != nil {
			return err
		}
		record[0] = formatFloat(s.Re())
		record[1] = formatFloat(s.Im())
		if ok {
			record[2] = formatFloat(v)
		} else {
			record[2] = "NaN"
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("writing csv row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	log.Info(log.CatExport, "CSV written", "path", e.Path, "rows", len(samples))
	return nil
}

// checkEvery is how many rows are written between context checks.
const checkEvery = 4096

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
