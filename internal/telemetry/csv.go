package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// AppendCSVRow appends one semicolon-delimited result row to path, creating
// the file (and its parent directory) and writing the header if it does not
// already exist.
func AppendCSVRow(path string, r Result) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("telemetry: create csv dir: %w", err)
		}
	}

	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("telemetry: open csv: %w", err)
	}
	defer f.Close()

	if needsHeader {
		if _, err := f.WriteString("timestamp;mercado;token_seguido;modo_real;pnl_final;inventario_final;cash_final;kappa_calibrada\n"); err != nil {
			return fmt.Errorf("telemetry: write csv header: %w", err)
		}
	}

	row := fmt.Sprintf("%s;%s;%s;%t;%f;%f;%f;%f\n",
		r.Timestamp.Format(time.RFC3339),
		r.Market,
		r.TokenSeguido,
		r.ModoReal,
		r.PnLFinal,
		r.InventarioFinal,
		r.CashFinal,
		r.KappaCalibrada,
	)
	if _, err := f.WriteString(row); err != nil {
		return fmt.Errorf("telemetry: write csv row: %w", err)
	}
	return nil
}
