package report

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"habittracker/internal/analytics"
	"habittracker/internal/model"
)

const (
	dailyChartDays = 15
	chartWidth     = 150.0
	chartHeight    = 45.0
	chartBlock     = chartHeight + 22
	tableColWidth  = 50.0
	tableRowHeight = 7.0
)

type rgb struct{ r, g, b int }

var (
	green = rgb{16, 185, 129}
	blue  = rgb{59, 130, 246}
	beige = rgb{245, 245, 220}
	grey  = rgb{160, 160, 160}
	black = rgb{0, 0, 0}
)

type pdfWriter struct {
	pdf   *fpdf.Fpdf
	tr    func(string) string
	today time.Time
}

// WritePDF renders one page per habit with a 15 day completion line chart,
// weekly and monthly completion bar charts and a table of every log.
func WritePDF(w io.Writer, r *Report) error {
	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetMargins(15, 12.7, 15)
	pdf.SetAutoPageBreak(true, 12.7)
	pdf.SetTitle(title, false)
	pdf.SetCreationDate(r.GeneratedAt)

	pw := &pdfWriter{
		pdf:   pdf,
		tr:    pdf.UnicodeTranslatorFromDescriptor(""),
		today: analytics.Day(r.GeneratedAt),
	}

	pdf.AddPage()
	pw.setColor(green)
	pdf.SetFont("Helvetica", "B", 24)
	pdf.CellFormat(0, 12, title, "", 1, "L", false, 0, "")
	pw.setColor(black)
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "Generated: "+r.GeneratedAt.Format(timestampLayout), "", 1, "L", false, 0, "")
	pdf.Ln(8)

	for i, sec := range r.Sections {
		if i > 0 {
			pdf.AddPage()
		}
		pw.section(sec)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func (pw *pdfWriter) setColor(c rgb) { pw.pdf.SetTextColor(c.r, c.g, c.b) }

func (pw *pdfWriter) heading(text string) {
	pw.setColor(green)
	pw.pdf.SetFont("Helvetica", "B", 14)
	pw.pdf.CellFormat(0, 9, pw.tr(text), "", 1, "L", false, 0, "")
	pw.setColor(black)
	pw.pdf.SetFont("Helvetica", "", 10)
}

// ensureSpace 剩余高度不足时换页，图表是绝对坐标绘制，不会自动分页
func (pw *pdfWriter) ensureSpace(h float64) {
	_, pageH := pw.pdf.GetPageSize()
	_, _, _, bottom := pw.pdf.GetMargins()
	if pw.pdf.GetY()+h > pageH-bottom {
		pw.pdf.AddPage()
	}
}

func (pw *pdfWriter) section(sec Section) {
	pdf := pw.pdf

	pw.heading("Habit: " + sec.Habit.Name)
	if hasGoal(sec.Habit) {
		pdf.CellFormat(0, 6, fmt.Sprintf("Goal: %d", *sec.Habit.Goal), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	series := analytics.ChartSeries(sec.Logs, pw.today, dailyChartDays)
	if len(series) > dailyChartDays {
		series = series[len(series)-dailyChartDays:]
	}
	pw.ensureSpace(chartBlock)
	pw.heading(fmt.Sprintf("Daily Completion Trend (Last %d Days)", dailyChartDays))
	pw.lineChart(series)

	weekly := analytics.WeeklyTrend(sec.Logs, pw.today)
	labels, rates := make([]string, len(weekly)), make([]float64, len(weekly))
	for i, b := range weekly {
		labels[i], rates[i] = b.Week, b.CompletionRate
	}
	pw.ensureSpace(chartBlock)
	pw.heading("Weekly Completion Rate")
	pw.barChart(labels, rates, green)

	monthly := analytics.MonthlyTrend(sec.Logs, pw.today)
	labels, rates = make([]string, len(monthly)), make([]float64, len(monthly))
	for i, b := range monthly {
		labels[i], rates[i] = b.Month, b.CompletionRate
	}
	pw.ensureSpace(chartBlock)
	pw.heading("Monthly Completion Rate")
	pw.barChart(labels, rates, blue)

	if len(sec.Logs) > 0 {
		pw.ensureSpace(9 + 2*tableRowHeight)
		pw.heading("Detailed Logs")
		pw.logTable(newestFirst(sec.Logs))
	}
}

// axes 画坐标轴并返回绘图区左下角
func (pw *pdfWriter) axes(yMax string) (x0, y0 float64) {
	pdf := pw.pdf
	left, _, _, _ := pdf.GetMargins()
	x0 = left + 12
	y0 = pdf.GetY() + chartHeight + 2

	pdf.SetDrawColor(black.r, black.g, black.b)
	pdf.SetLineWidth(0.3)
	pdf.Line(x0, y0, x0+chartWidth, y0)
	pdf.Line(x0, y0, x0, y0-chartHeight)

	pdf.SetFont("Helvetica", "", 7)
	pdf.Text(x0-5, y0+1, "0")
	pdf.Text(x0-2-pdf.GetStringWidth(yMax), y0-chartHeight+1, yMax)
	return x0, y0
}

func (pw *pdfWriter) finishChart(y0 float64) {
	pw.pdf.SetY(y0 + 10)
	pw.pdf.SetFont("Helvetica", "", 10)
}

func (pw *pdfWriter) lineChart(points []analytics.ChartPoint) {
	pdf := pw.pdf
	x0, y0 := pw.axes("1")
	if len(points) == 0 {
		pw.finishChart(y0)
		return
	}

	step := chartWidth / float64(len(points))
	pointXY := func(i int) (float64, float64) {
		y := y0
		if points[i].Completed {
			y = y0 - chartHeight
		}
		return x0 + step*(float64(i)+0.5), y
	}

	pdf.SetDrawColor(green.r, green.g, green.b)
	pdf.SetLineWidth(0.6)
	for i := 1; i < len(points); i++ {
		x1, y1 := pointXY(i - 1)
		x2, y2 := pointXY(i)
		pdf.Line(x1, y1, x2, y2)
	}

	pdf.SetFont("Helvetica", "", 6)
	for i, p := range points {
		x, _ := pointXY(i)
		label := p.Date[5:7] + "/" + p.Date[8:10]
		pdf.Text(x-pdf.GetStringWidth(label)/2, y0+4, label)
	}
	pw.finishChart(y0)
}

// barChart 绘制 0-100 的百分比柱状图
func (pw *pdfWriter) barChart(labels []string, values []float64, fill rgb) {
	pdf := pw.pdf
	x0, y0 := pw.axes("100")
	if len(values) == 0 {
		pw.finishChart(y0)
		return
	}

	slot := chartWidth / float64(len(values))
	barW := slot * 0.6

	pdf.SetDrawColor(grey.r, grey.g, grey.b)
	pdf.SetFillColor(fill.r, fill.g, fill.b)
	pdf.SetFont("Helvetica", "", 7)
	for i, v := range values {
		if v > 100 {
			v = 100
		}
		h := chartHeight * v / 100
		x := x0 + slot*float64(i) + (slot-barW)/2
		if h > 0 {
			pdf.Rect(x, y0-h, barW, h, "FD")
		}
		pdf.Text(x+barW/2-pdf.GetStringWidth(labels[i])/2, y0+4, labels[i])
	}
	pw.finishChart(y0)
}

func (pw *pdfWriter) logTable(logs []model.HabitLog) {
	pdf := pw.pdf

	header := func() {
		pdf.SetFillColor(green.r, green.g, green.b)
		pdf.SetTextColor(255, 255, 255)
		pdf.SetDrawColor(black.r, black.g, black.b)
		pdf.SetFont("Helvetica", "B", 11)
		for _, h := range []string{"Date", "Completed", "Value"} {
			pdf.CellFormat(tableColWidth, tableRowHeight+1, h, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetTextColor(black.r, black.g, black.b)
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetFillColor(beige.r, beige.g, beige.b)
	}

	header()
	_, pageH := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for _, l := range logs {
		if pdf.GetY()+tableRowHeight > pageH-bottom {
			pdf.AddPage()
			header()
		}
		pdf.CellFormat(tableColWidth, tableRowHeight, l.Date.Format(model.DateLayout), "1", 0, "C", true, 0, "")
		pdf.CellFormat(tableColWidth, tableRowHeight, completedLabel(l.Completed), "1", 0, "C", true, 0, "")
		pdf.CellFormat(tableColWidth, tableRowHeight, valueText(l.Value), "1", 1, "C", true, 0, "")
	}
}
