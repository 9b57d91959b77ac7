package utils

import (
	"fmt"
	"net/smtp"
	"os"
)

func SendEmail(to, subject, body string) error {
	from := os.Getenv("SMTP_EMAIL")
	pass := os.Getenv("SMTP_PASSWORD")

	// Headers: hỗ trợ UTF-8 & HTML
	msg := ""
	msg += "MIME-Version: 1.0\r\n"
	msg += "Content-Type: text/html; charset=\"UTF-8\"\r\n"
	msg += fmt.Sprintf("From: %s\r\n", from)
	msg += fmt.Sprintf("To: %s\r\n", to)
	msg += fmt.Sprintf("Subject: %s\r\n", subject)
	msg += "\r\n" + body

	// Gửi mail
	err := smtp.SendMail(
		"smtp.gmail.com:587",
		smtp.PlainAuth("", from, pass, "smtp.gmail.com"),
		from,
		[]string{to},
		[]byte(msg),
	)

	if err != nil {
		return fmt.Errorf("gửi email thất bại: %v", err)
	}
	return nil
}

// Email đặt lại mật khẩu, link trỏ về frontend
func PasswordResetEmailBody(fullName, token string) string {
	appURL := os.Getenv("APP_URL")
	if appURL == "" {
		appURL = "http://localhost:5173"
	}
	return `
	<h3>Xin chào ` + fullName + `,</h3>
	<p>Bạn (hoặc phụ huynh của bạn) vừa yêu cầu đặt lại mật khẩu tài khoản <b>Mintoons</b>.</p>
	<p>Nhấn vào link sau để đặt lại mật khẩu (hết hạn sau 30 phút):</p>
	<p><a href="` + appURL + `/reset-password?token=` + token + `">Đặt lại mật khẩu</a></p>
	<hr>
	<p><i>Đây là email tự động, vui lòng không trả lời.</i></p>
	`
}

// Email báo tin đạt giải cuộc thi
func ContestWinnerEmailBody(fullName, contestTitle string, place int) string {
	return fmt.Sprintf(`
	<h3>Chúc mừng %s!</h3>
	<p>Truyện của bạn đã đạt <b>giải %d</b> trong cuộc thi <b>%s</b> trên Mintoons.</p>
	<p>Hãy đăng nhập để xem kết quả chi tiết nhé!</p>
	<hr>
	<p><i>Đây là email tự động, vui lòng không trả lời.</i></p>
	`, fullName, place, contestTitle)
}
