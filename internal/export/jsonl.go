package export

import (
	"bufio"
	"context"
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/zjrosen/mandelgrid/internal/log"
	"github.com/zjrosen/mandelgrid/internal/sample"
)

// Row is one exported sample. Value is nil for diverged samples.
type Row struct {
	Re    float64  `json:"re"`
	Im    float64  `json:"im"`
	Value *float64 `json:"value"`
}

// JSONLExporter writes one Row object per line.
type JSONLExporter struct {
	Path string
}

// Export writes samples to e.Path, replacing any existing file.
func (e *JSONLExporter) Export(ctx context.Context, samples []sample.Sample) (err error) {
	f, err := createFile(e.Path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing jsonl: %w", cerr)
		}
	}()

	buf := bufio.NewWriter(f)
	encoder := sonic.ConfigStd.NewEncoder(buf)
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
		row := Row{Re: s.Re(), Im: s.Im()}
		if ok {
			row.Value = &v
		}
		if err := encoder.Encode(row); err != nil {
			return fmt.Errorf("encoding row %d: %w", i, err)
		}
	}
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("flushing jsonl: %w", err)
	}
	log.Info(log.CatExport, "JSONL written", "path", e.Path, "rows", len(samples))
	return nil
}
