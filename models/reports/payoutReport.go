package reports

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mixpitch/mixpitch_backend/config"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type ProducerPayoutSummaryResponse struct {
	ProducerId    int             `json:"ProducerId"`
	ProducerName  string          `json:"ProducerName"`
	PayoutCount   int             `json:"PayoutCount"`
	TotalGross    decimal.Decimal `json:"TotalGross"`
	TotalNet      decimal.Decimal `json:"TotalNet"`
	TotalHeld     decimal.Decimal `json:"TotalHeld"`
	TotalReleased decimal.Decimal `json:"TotalReleased"`
}

// GetProducerPayoutSummaryReport aggregates payouts per producer over a date
// range. Held = still scheduled; released = processing or completed.
func GetProducerPayoutSummaryReport(ctx context.Context, fromDate time.Time, toDate time.Time) ([]*ProducerPayoutSummaryResponse, error) {

	sql := `
SELECT
    ps.producer_id,
    users.name AS producer_name,
    COUNT(ps.id) AS payout_count,
    SUM(ps.gross_amount) AS total_gross,
    SUM(ps.net_amount) AS total_net,
    SUM(CASE WHEN ps.status = 'scheduled' THEN ps.net_amount ELSE 0 END) AS total_held,
    SUM(CASE WHEN ps.status IN ('processing', 'completed') THEN ps.net_amount ELSE 0 END) AS total_released
FROM
    payout_schedules AS ps
        LEFT JOIN
    users ON users.id = ps.producer_id
WHERE
    ps.created_at BETWEEN @fromDate AND @toDate
GROUP BY ps.producer_id, users.name
ORDER BY total_net DESC;
`

	var records []*ProducerPayoutSummaryResponse
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql, map[string]interface{}{
		"fromDate": fromDate,
		"toDate":   toDate,
	}).Scan(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

type PayoutExportRow struct {
	PayoutId        int             `json:"PayoutId"`
	PitchId         int             `json:"PitchId"`
	ProducerName    string          `json:"ProducerName"`
	WorkflowType    string          `json:"WorkflowType"`
	Status          string          `json:"Status"`
	GrossAmount     decimal.Decimal `json:"GrossAmount"`
	CommissionRate  decimal.Decimal `json:"CommissionRate"`
	NetAmount       decimal.Decimal `json:"NetAmount"`
	Currency        string          `json:"Currency"`
	HoldReleaseDate time.Time       `json:"HoldReleaseDate"`
	HoldBypassed    bool            `json:"HoldBypassed"`
	CreatedAt       time.Time       `json:"CreatedAt"`
}

func getPayoutExportRows(ctx context.Context) ([]*PayoutExportRow, error) {

	sql := `
SELECT
    ps.id AS payout_id,
    ps.pitch_id,
    users.name AS producer_name,
    ps.workflow_type,
    ps.status,
    ps.gross_amount,
    ps.commission_rate,
    ps.net_amount,
    ps.currency,
    ps.hold_release_date,
    ps.hold_bypassed,
    ps.created_at
FROM
    payout_schedules AS ps
        LEFT JOIN
    users ON users.id = ps.producer_id
ORDER BY ps.created_at DESC;
`

	var records []*PayoutExportRow
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql).Scan(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// WritePayoutExportExcel streams the full payout ledger as an xlsx workbook.
func WritePayoutExportExcel(ctx context.Context, w io.Writer) error {

	rows, err := getPayoutExportRows(ctx)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	sheetName := "Payouts"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headings := []string{
		"Payout Id", "Pitch Id", "Producer", "Workflow", "Status",
		"Gross", "Commission %", "Net", "Currency", "Release Date", "Bypassed", "Created At",
	}
	col := 'A'
	for _, h := range headings {
		f.SetCellValue(sheetName, string(col)+"1", h)
		col++
	}

	for i, r := range rows {
		rowNo := fmt.Sprint(i + 2)
		f.SetCellValue(sheetName, "A"+rowNo, r.PayoutId)
		f.SetCellValue(sheetName, "B"+rowNo, r.PitchId)
		f.SetCellValue(sheetName, "C"+rowNo, r.ProducerName)
		f.SetCellValue(sheetName, "D"+rowNo, r.WorkflowType)
		f.SetCellValue(sheetName, "E"+rowNo, r.Status)
		f.SetCellValue(sheetName, "F"+rowNo, r.GrossAmount.StringFixed(2))
		f.SetCellValue(sheetName, "G"+rowNo, r.CommissionRate.StringFixed(2))
		f.SetCellValue(sheetName, "H"+rowNo, r.NetAmount.StringFixed(2))
		f.SetCellValue(sheetName, "I"+rowNo, r.Currency)
		f.SetCellValue(sheetName, "J"+rowNo, r.HoldReleaseDate.Format(time.RFC3339))
		f.SetCellValue(sheetName, "K"+rowNo, r.HoldBypassed)
		f.SetCellValue(sheetName, "L"+rowNo, r.CreatedAt.Format(time.RFC3339))
	}

	return f.Write(w)
}
