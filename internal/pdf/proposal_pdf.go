package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"bizdesk/internal/models"
)

// Generator — интерфейс (удобно мокать в тестах)
type Generator interface {
	GenerateProposalSummary(data ProposalSummaryData) (string, error)
}

// DocumentGenerator — реализация
type DocumentGenerator struct {
	RootDir  string // корень хранения, например "./files"
	FontPath string // путь до TTF, например "assets/fonts/DejaVuSans.ttf"
	fontName string // внутреннее имя шрифта в PDF
}

type ProposalSummaryData struct {
	OpportunityTitle string
	Proposal         models.Proposal
	Filename         string // имя файла (без путей); если пусто — сгенерируем
}

func NewDocumentGenerator(rootDir, fontPath string) *DocumentGenerator {
	return &DocumentGenerator{
		RootDir:  filepath.Clean(rootDir),
		FontPath: fontPath,
		fontName: "DejaVu",
	}
}

// GenerateProposalSummary renders the proposal pipeline into a one-page
// summary: header, stage table and pricing block.
func (g *DocumentGenerator) GenerateProposalSummary(data ProposalSummaryData) (string, error) {
	p := data.Proposal

	filename := data.Filename
	if filename == "" {
		filename = fmt.Sprintf("%s.pdf", p.ID)
	}
	absPath, err := g.ensureTarget(filename)
	if err != nil {
		return "", err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	g.addUTF8Font(pdf)
	pdf.AddPage()

	// ===== Заголовок
	pdf.SetFont(g.fontName, "B", 16)
	pdf.SetY(20)
	title := p.Title
	if title == "" {
		title = "Proposal"
	}
	pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	g.kvLine(pdf, "Opportunity", data.OpportunityTitle)
	if ts, ok := models.ProposalIDTime(p.ID); ok {
		g.kvLine(pdf, "Created", ts.Format("02.01.2006 15:04"))
	}
	if p.WorkingDocumentLink != "" {
		g.kvLine(pdf, "Working document", p.WorkingDocumentLink)
	}
	g.hr(pdf)

	// ===== Этапы согласования
	g.sectionTitle(pdf, "Approval stages")
	pdf.SetFont(g.fontName, "B", 10)
	pdf.CellFormat(10, 7, "#", "1", 0, "C", false, 0, "")
	pdf.CellFormat(62, 7, "Stage", "1", 0, "L", false, 0, "")
	pdf.CellFormat(38, 7, "Department", "1", 0, "L", false, 0, "")
	pdf.CellFormat(38, 7, "Assignee", "1", 0, "L", false, 0, "")
	pdf.CellFormat(22, 7, "Status", "1", 1, "C", false, 0, "")

	pdf.SetFont(g.fontName, "", 10)
	for i, st := range p.Stages {
		status := st.Status
		if status == "" {
			status = models.StagePending
		}
		pdf.CellFormat(10, 7, fmt.Sprintf("%d", i+1), "1", 0, "C", false, 0, "")
		pdf.CellFormat(62, 7, st.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(38, 7, st.Department, "1", 0, "L", false, 0, "")
		pdf.CellFormat(38, 7, st.Assignee, "1", 0, "L", false, 0, "")
		pdf.CellFormat(22, 7, string(status), "1", 1, "C", false, 0, "")
	}
	pdf.Ln(2)

	// Детали по терминальным этапам
	for i, st := range p.Stages {
		switch st.Status {
		case models.StageApproved:
			line := fmt.Sprintf("%d. Approved by %s", i+1, st.ApprovedBy)
			if st.ApprovedAt != nil {
				line += " — " + st.ApprovedAt.Format("02.01.2006 15:04")
			}
			pdf.MultiCell(0, 6, line, "", "L", false)
		case models.StageRejected:
			line := fmt.Sprintf("%d. Rejected by %s", i+1, st.RejectedBy)
			if st.RejectedAt != nil {
				line += " — " + st.RejectedAt.Format("02.01.2006 15:04")
			}
			if strings.TrimSpace(st.RejectedReason) != "" {
				line += ": " + st.RejectedReason
			}
			pdf.MultiCell(0, 6, line, "", "L", false)
		}
	}
	g.hr(pdf)

	// ===== Стоимость
	if p.Pricing.Subtotal != 0 || p.Pricing.Tax != 0 || p.Pricing.Total != 0 {
		g.sectionTitle(pdf, "Pricing")
		g.kvLine(pdf, "Subtotal", fmt.Sprintf("%.2f", p.Pricing.Subtotal))
		g.kvLine(pdf, "Tax", fmt.Sprintf("%.2f", p.Pricing.Tax))
		g.kvLine(pdf, "Total", fmt.Sprintf("%.2f", p.Pricing.Total))
		g.hr(pdf)
	}

	pdf.SetFont(g.fontName, "", 9)
	pdf.CellFormat(0, 6, "Generated "+time.Now().Format("02.01.2006 15:04"), "", 1, "R", false, 0, "")

	// ===== Нумерация страниц
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(g.fontName, "", 10)
		pdf.CellFormat(0, 10,
			fmt.Sprintf("Стр. %d/{nb}", pdf.PageNo()),
			"", 0, "C", false, 0, "",
		)
	})

	if err := pdf.OutputFileAndClose(absPath); err != nil {
		return "", err
	}
	return absPath, nil
}

// ===== helpers =====

func (g *DocumentGenerator) ensureTarget(filename string) (string, error) {
	if err := os.MkdirAll(g.RootDir, 0o755); err != nil {
		return "", fmt.Errorf("create files dir: %w", err)
	}
	filename = filepath.Base(filename) // безопасность
	return filepath.Join(g.RootDir, filename), nil
}

func (g *DocumentGenerator) addUTF8Font(pdf *gofpdf.Fpdf) {
	// AddUTF8Font принимает путь до TTF
	pdf.AddUTF8Font(g.fontName, "", g.FontPath)
	pdf.AddUTF8Font(g.fontName, "B", g.FontPath)
}

func (g *DocumentGenerator) sectionTitle(pdf *gofpdf.Fpdf, s string) {
	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 7, s, "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
}

func (g *DocumentGenerator) kvLine(pdf *gofpdf.Fpdf, key, val string) {
	pdf.SetFont(g.fontName, "B", 11)
	pdf.CellFormat(45, 6, key+":", "", 0, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, val, "", 1, "L", false, 0, "")
}

func (g *DocumentGenerator) hr(pdf *gofpdf.Fpdf) {
	y := pdf.GetY() + 1.5
	pdf.SetLineWidth(0.2)
	pdf.Line(20, y, 190, y)
	pdf.SetY(y + 2)
}
