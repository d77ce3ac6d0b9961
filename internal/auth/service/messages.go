package service

import (
	"fmt"
	"strings"
)

// OTP message templates by language tag. The caller may localize further;
// unknown languages fall back to English.
var otpTemplates = map[string]string{
	"en": "Your verification code is %s. It expires in 5 minutes.",
	"es": "Tu código de verificación es %s. Caduca en 5 minutos.",
	"pt": "Seu código de verificação é %s. Ele expira em 5 minutos.",
	"id": "Kode verifikasi Anda adalah %s. Berlaku selama 5 menit.",
}

func otpMessage(language, code string) string {
	lang := strings.ToLower(strings.TrimSpace(language))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	tpl, ok := otpTemplates[lang]
	if !ok {
		tpl = otpTemplates["en"]
	}
	return fmt.Sprintf(tpl, code)
}
