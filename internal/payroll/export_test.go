package payroll

var (
	MapRunErrorForTest      = mapRunError
	RenderPayslipPDFForTest = renderPayslipPDF
	PayslipFileNameForTest  = payslipFileName
)
