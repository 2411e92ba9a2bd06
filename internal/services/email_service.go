package services

import (
	"fmt"
	"log"

	"gopkg.in/gomail.v2"

	"github.com/example/techshop/internal/config"
	"github.com/example/techshop/internal/models"
)

// EmailService sends customer notifications over SMTP. Sending is strictly
// best-effort: callers log failures and never roll back on them. An
// unconfigured service is a no-op.
type EmailService struct {
	fromName  string
	fromEmail string
	dialer    *gomail.Dialer
}

// NewEmailService constructs an EmailService from configuration.
func NewEmailService(cfg *config.Config) *EmailService {
	svc := &EmailService{
		fromName:  cfg.SMTPFromName,
		fromEmail: cfg.SMTPFromEmail,
	}

	if cfg.SMTPHost != "" {
		svc.dialer = gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	}

	return svc
}

func (s *EmailService) send(to, subject, htmlBody string) error {
	if s.dialer == nil {
		log.Println("[Email] SMTP not configured, skipping send")
		return nil
	}
	if to == "" {
		return fmt.Errorf("recipient email is empty")
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.fromEmail, s.fromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	return s.dialer.DialAndSend(m)
}

// SendOrderStatusUpdate notifies the customer that the order status changed.
// The order must be loaded with its user.
func (s *EmailService) SendOrderStatusUpdate(order *models.Order) error {
	if order.User == nil {
		return fmt.Errorf("order %s has no user loaded", order.ID)
	}

	body := fmt.Sprintf(`
		<html><body style="font-family: Arial, sans-serif;">
		<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
			<h2>Оновлення статусу замовлення</h2>
			<p>Шановний(а) %s %s,</p>
			<p>Статус вашого замовлення №%s було оновлено до "%s".</p>
			<div style="margin: 20px 0; padding: 15px; background-color: #f8f9fa;">
				<p>Дата замовлення: %s</p>
				<p>Загальна сума: %.2f грн</p>
			</div>
			<p>З повагою,<br>Команда TechShop</p>
		</div>
		</body></html>`,
		order.User.FirstName, order.User.LastName,
		order.ID, order.Status,
		order.CreatedAt.Format("02.01.2006 15:04"),
		order.TotalAmount,
	)

	return s.send(order.User.Email, "Оновлення статусу замовлення", body)
}

// SendDeliveryStatusUpdate notifies the customer about a delivery status
// change. The order must be loaded with its user and delivery.
func (s *EmailService) SendDeliveryStatusUpdate(order *models.Order) error {
	if order.User == nil || order.Delivery == nil {
		return fmt.Errorf("order %s is missing user or delivery", order.ID)
	}

	body := fmt.Sprintf(`
		<html><body style="font-family: Arial, sans-serif;">
		<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
			<h2>Оновлення статусу доставки</h2>
			<p>Шановний(а) %s %s,</p>
			<p>Статус доставки замовлення №%s: "%s".</p>
			<div style="margin: 20px 0; padding: 15px; background-color: #f8f9fa;">
				<p>Спосіб доставки: %s</p>
				<p>Вартість доставки: %.2f грн</p>
			</div>
			<p>З повагою,<br>Команда TechShop</p>
		</div>
		</body></html>`,
		order.User.FirstName, order.User.LastName,
		order.ID, order.Delivery.Status,
		order.Delivery.Method,
		order.Delivery.Cost,
	)

	return s.send(order.User.Email, "Оновлення статусу доставки", body)
}

// SendPaymentReceipt notifies the customer about a successful payment.
// The order must be loaded with its user and payment.
func (s *EmailService) SendPaymentReceipt(order *models.Order) error {
	if order.User == nil || order.Payment == nil {
		return fmt.Errorf("order %s is missing user or payment", order.ID)
	}

	body := fmt.Sprintf(`
		<html><body style="font-family: Arial, sans-serif;">
		<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
			<h2>Оплату отримано</h2>
			<p>Шановний(а) %s %s,</p>
			<p>Ми отримали оплату за замовлення №%s.</p>
			<div style="margin: 20px 0; padding: 15px; background-color: #f8f9fa;">
				<p>Сума: %.2f грн</p>
			</div>
			<p>З повагою,<br>Команда TechShop</p>
		</div>
		</body></html>`,
		order.User.FirstName, order.User.LastName,
		order.ID,
		order.Payment.Amount,
	)

	return s.send(order.User.Email, "Підтвердження оплати", body)
}
