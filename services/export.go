package services

import (
	"strings"
	"time"

	"github.com/tealeg/xlsx"
)

const exportTimeLayout = "2006-01-02 15:04:05"

var exportHeaders = []string{
	"ID", "Name", "Slug", "Brand", "Category", "Price", "Discount", "Stock", "Sold",
	"Rating", "Reviews", "Sizes", "For", "Sale", "Images", "CreatedAt", "UpdatedAt",
}

// BuildProductWorkbook lays the export rows out on a single "Products" sheet.
func BuildProductWorkbook(rows []ExportRow) (*xlsx.File, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		return nil, err
	}

	header := sheet.AddRow()
	for _, h := range exportHeaders {
		header.AddCell().SetValue(h)
	}

	for _, r := range rows {
		p := r.Product
		row := sheet.AddRow()
		row.AddCell().SetValue(p.ID.Hex())
		row.AddCell().SetValue(p.Name)
		row.AddCell().SetValue(p.Slug)
		row.AddCell().SetValue(p.Brand)
		row.AddCell().SetValue(r.CategoryName)
		row.AddCell().SetFloat(p.Price)
		row.AddCell().SetFloat(p.Discount)
		row.AddCell().SetInt(p.Stock)
		row.AddCell().SetInt(p.Sold)
		row.AddCell().SetFloat(p.Rating)
		row.AddCell().SetInt(p.NumReviews)

		sizes := make([]string, len(p.Sizes))
		for i, s := range p.Sizes {
			sizes[i] = string(s)
		}
		row.AddCell().SetValue(strings.Join(sizes, ","))

		audiences := make([]string, len(p.For))
		for i, a := range p.For {
			audiences[i] = string(a)
		}
		row.AddCell().SetValue(strings.Join(audiences, ","))
		row.AddCell().SetBool(p.Sale)

		urls := make([]string, len(p.Images))
		for i, img := range p.Images {
			urls[i] = img.URL
		}
		row.AddCell().SetValue(strings.Join(urls, " "))
		row.AddCell().SetValue(p.CreatedAt.UTC().Format(exportTimeLayout))
		row.AddCell().SetValue(p.UpdatedAt.UTC().Format(exportTimeLayout))
	}
	return file, nil
}

// ExportFilename is stamped with the export date.
func ExportFilename(now time.Time) string {
	return "products-" + now.UTC().Format("20060102") + ".xlsx"
}
