package dialog

import (
	"fmt"
	"strings"
	"time"

	"github.com/medinow/scheduling-assistant/internal/calendar"
)

// Messages renders every user-facing reply. All copy is pt-BR, in the voice
// the clinic already uses on WhatsApp.
type Messages struct {
	ClinicName string
	Location   string
	MaxSlots   int
}

// NewMessages builds the catalog with defaults applied.
func NewMessages(clinicName, location string, maxSlots int) *Messages {
	if clinicName == "" {
		clinicName = "Clínica MediNow"
	}
	if location == "" {
		location = clinicName
	}
	if maxSlots <= 0 {
		maxSlots = 6
	}
	return &Messages{ClinicName: clinicName, Location: location, MaxSlots: maxSlots}
}

func (m *Messages) Greeting() string {
	return fmt.Sprintf("Olá! 👋 Sou o assistente de agendamento da %s. Posso agendar, consultar, remarcar ou cancelar uma consulta. Como posso ajudar?", m.ClinicName)
}

func (m *Messages) DefaultHelp() string {
	return "Posso ajudá-lo a agendar, consultar, remarcar ou cancelar uma consulta médica. Diga, por exemplo, 'quero agendar uma consulta'."
}

func (m *Messages) Farewell() string {
	return fmt.Sprintf("Tudo bem! Se precisar de algo, é só chamar. Até logo! 👋 — %s", m.ClinicName)
}

func (m *Messages) AskDateRange() string {
	return "Qual data você prefere? 📅 Pode dizer 'hoje', 'amanhã' ou uma data específica como '15/11'."
}

func (m *Messages) ClarifyDate() string {
	return "Não consegui identificar a data. Poderia informar novamente? Use formatos como 'hoje', 'amanhã' ou '15/11'."
}

func (m *Messages) PastDate() string {
	return "⚠️ Não posso agendar para datas passadas. Por favor, escolha uma data futura."
}

func (m *Messages) NoSlots(start, end time.Time) string {
	if sameDay(start, end) {
		return fmt.Sprintf("😕 Infelizmente não há horários disponíveis para %s. Poderia escolher outra data?", start.Format("02/01/2006"))
	}
	return fmt.Sprintf("😕 Infelizmente não há horários disponíveis entre %s e %s. Poderia escolher outro período?", start.Format("02/01/2006"), end.Format("02/01/2006"))
}

// SlotList renders the numbered candidate list. Ordinals in the reply are
// the selection contract, so order here must match the stored candidates.
func (m *Messages) SlotList(slots []calendar.Slot) string {
	var sb strings.Builder
	sb.WriteString("Horários disponíveis:\n")
	for i, slot := range slots {
		fmt.Fprintf(&sb, "%d. %s às %s\n", i+1, slot.Start.Format("02/01/2006"), slot.Start.Format("15:04"))
	}
	sb.WriteString("\nDigite o número do horário desejado.")
	return sb.String()
}

func (m *Messages) InvalidSelection(total int) string {
	return fmt.Sprintf("Por favor, escolha um número entre 1 e %d, ou informe um dos horários listados.", total)
}

func (m *Messages) AskPatientInfo(missing []string) string {
	return fmt.Sprintf("Agora preciso de suas informações: por favor, me informe seu %s.", strings.Join(missing, " e "))
}

func (m *Messages) ConfirmSummary(p Profile, slot calendar.Slot) string {
	return fmt.Sprintf(`📋 Confirmação do Agendamento

👤 Paciente: %s
📧 Email: %s
📅 Data: %s
🕒 Horário: %s
🏥 Local: %s

Confirma o agendamento? Digite 'SIM' para confirmar ou 'NÃO' para cancelar.`,
		p.Name, p.Email, slot.Start.Format("02/01/2006"), slot.Start.Format("15:04"), m.Location)
}

func (m *Messages) AskYesNo() string {
	return "Por favor, responda 'SIM' para confirmar ou 'NÃO' para cancelar."
}

func (m *Messages) Booked(slot calendar.Slot) string {
	return fmt.Sprintf(`🎉 Agendamento confirmado com sucesso!

Sua consulta foi agendada para %s às %s.
📧 Você receberá um convite por email com todos os detalhes.

Até breve na %s! 🏥`, slot.Start.Format("02/01/2006"), slot.Start.Format("15:04"), m.ClinicName)
}

func (m *Messages) BookingAborted() string {
	return "❌ Agendamento cancelado. Se precisar de algo mais, é só me chamar!"
}

func (m *Messages) ProviderApology() string {
	return "😓 Tive um problema para falar com a agenda agora. Pode tentar de novo, por favor?"
}

func (m *Messages) ProviderFailure() string {
	return "😓 Ocorreu um erro ao concluir a operação. Por favor, tente novamente mais tarde ou entre em contato diretamente com a clínica."
}

func (m *Messages) SlotTaken() string {
	return "⚠️ Esse horário acabou de ser reservado por outra pessoa. Atualizei a lista para você:"
}

func (m *Messages) AskIdentity() string {
	return "Para localizar suas consultas, me informe seu email ou telefone cadastrado, por favor."
}

func (m *Messages) NoAppointments() string {
	return "Não encontrei nenhuma consulta agendada para você. Quer agendar uma? 😊"
}

// AppointmentList renders existing appointments, numbered for selection.
func (m *Messages) AppointmentList(appts []calendar.Appointment) string {
	var sb strings.Builder
	sb.WriteString("Encontrei estas consultas agendadas:\n")
	for i, a := range appts {
		fmt.Fprintf(&sb, "%d. %s às %s\n", i+1, a.Slot.Start.Format("02/01/2006"), a.Slot.Start.Format("15:04"))
	}
	return sb.String()
}

func (m *Messages) AskAppointmentChoice(action string) string {
	return fmt.Sprintf("Digite o número da consulta que deseja %s.", action)
}

func (m *Messages) AppointmentDetails(a calendar.Appointment) string {
	return fmt.Sprintf("📅 Consulta em %s às %s, na %s, em nome de %s. Posso ajudar com mais alguma coisa?",
		a.Slot.Start.Format("02/01/2006"), a.Slot.Start.Format("15:04"), m.Location, a.Patient.Name)
}

func (m *Messages) CancelConfirm(a calendar.Appointment) string {
	return fmt.Sprintf("Você quer cancelar a consulta de %s às %s? Digite 'SIM' para cancelar ou 'NÃO' para manter.",
		a.Slot.Start.Format("02/01/2006"), a.Slot.Start.Format("15:04"))
}

func (m *Messages) Cancelled() string {
	return "✅ Consulta cancelada. Se quiser remarcar, é só me avisar!"
}

func (m *Messages) Kept() string {
	return "Combinado, sua consulta está mantida. 😊"
}

func (m *Messages) AskNewDate() string {
	return "Para qual data você gostaria de remarcar? 📅"
}

func (m *Messages) Rescheduled(slot calendar.Slot) string {
	return fmt.Sprintf("🔁 Consulta remarcada para %s às %s. Você receberá o convite atualizado por email.",
		slot.Start.Format("02/01/2006"), slot.Start.Format("15:04"))
}

// ProactiveNotify opens the same-day outreach. The slot list follows as a
// second message.
func (m *Messages) ProactiveNotify() string {
	return fmt.Sprintf("Olá! 👋 Aqui é da %s. Surgiram horários disponíveis para hoje e lembramos de você. Quer aproveitar um deles?", m.ClinicName)
}

func (m *Messages) ProactiveDeclined() string {
	return "Sem problemas! Se mudar de ideia, é só chamar. 😊"
}

// FAQ answers for common digressions. Matching is keyword-based; unmatched
// digressions fall back to DefaultHelp.
func (m *Messages) FAQAnswer(text string) (string, bool) {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "endereço") || strings.Contains(lower, "endereco") || strings.Contains(lower, "onde fica"):
		return fmt.Sprintf("A %s fica no endereço informado no seu convite de agendamento. Qualquer dúvida, nossa recepção pode ajudar! 🏥", m.Location), true
	case strings.Contains(lower, "horário de funcionamento") || strings.Contains(lower, "horario de funcionamento") || strings.Contains(lower, "que horas abre"):
		return "Atendemos de segunda a sexta, das 9h às 18h.", true
	case strings.Contains(lower, "convênio") || strings.Contains(lower, "convenio") || strings.Contains(lower, "plano de saúde") || strings.Contains(lower, "plano de saude"):
		return "Atendemos os principais convênios. Para confirmar o seu, nossa recepção pode verificar a cobertura. 😊", true
	case strings.Contains(lower, "preço") || strings.Contains(lower, "preco") || strings.Contains(lower, "valor") || strings.Contains(lower, "quanto custa"):
		return "Os valores variam conforme o tipo de consulta. Nossa recepção pode passar os detalhes certinhos para você.", true
	}
	return "", false
}

// Prompt returns the canonical question for a frame's current step. Used to
// re-prompt on resume, so it must be deterministic for a given frame and
// profile.
func (m *Messages) Prompt(frame *Frame, p Profile) string {
	switch frame.Step {
	case StepAwaitingDateRange:
		if frame.Kind == FlowReschedule {
			return m.AskNewDate()
		}
		return m.AskDateRange()
	case StepAwaitingSlotChoice:
		return m.SlotList(frame.Collected.CandidateSlots)
	case StepAwaitingPatientInfo:
		missing := p.MissingFields()
		if len(missing) == 0 {
			missing = []string{"nome completo", "email"}
		}
		return m.AskPatientInfo(missing)
	case StepAwaitingConfirmation:
		return m.AskYesNo()
	case StepIdentifyingPatient:
		return m.AskIdentity()
	case StepAppointmentsPresented:
		return m.AppointmentList(frame.Collected.Appointments)
	case StepAwaitingCancelConfirmation:
		return m.AskYesNo()
	case StepNotified:
		return m.SlotList(frame.Collected.CandidateSlots)
	default:
		return m.DefaultHelp()
	}
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
