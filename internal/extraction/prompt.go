package extraction

import (
	"fmt"
	"time"
)

// Literal values the model is told to emit; the editor shows them as-is
const (
	LicenseExpired    = "منتهي"
	LicenseValid      = "ساري"
	NoRestrictions    = "لا يوجد قيود"
	FailureSentinel   = "extraction failed"
	arabicFailure     = "فشل في التحليل"
	systemInstruction = "أنت مساعد ذكي متخصص في قراءة النصوص الموجودة في صور الوثائق الرسمية."
)

// identityScanPrompt is the shared prompt used by all providers, rendered by buildPrompt
const identityScanPrompt = `أنت نظام لتحليل صور بطاقات الهوية ورخص القيادة. اقرأ كل النص الظاهر في الصورة واستخرج البيانات التالية.

أعد كائن JSON واحدًا فقط بهذه المفاتيح بالضبط، وكل القيم نصوص:
{
  "صورة الوثيقة": "captured.jpg",
  "الاسم الأول": "...",
  "الاسم الثاني": "...",
  "الاسم الثالث": "...",
  "الاسم الأخير": "...",
  "رقم الهوية": "...",
  "العمر": "...",
  "القيود": "...",
  "حالة سريان الرخصة": "...",
  "النوع": "..."
}

القواعد:
- تاريخ اليوم هو %[1]s. حالة سريان الرخصة: إذا كان تاريخ الانتهاء المكتوب في الوثيقة أقدم من تاريخ اليوم فاكتب "%[2]s"، وإلا فاكتب "%[3]s".
- القيود: إذا لم تظهر أي قيود مقروءة فاكتب "%[4]s".
- النوع يقصد به نوع المركبة، وغالبًا تكون الإجابة نقل ثقيل أو شاحنة.
- لا تكتب أي نص قبل كائن JSON أو بعده.
- إذا لم تستطع قراءة الصورة فأعد النص التالي فقط: "%[5]s"`

// buildPrompt renders the instruction prompt for the given day
func buildPrompt(now time.Time) string {
	return fmt.Sprintf(identityScanPrompt,
		now.Format("2006-01-02"),
		LicenseExpired,
		LicenseValid,
		NoRestrictions,
		FailureSentinel,
	)
}
