package handler

import (
	"encoding/json"
	"html/template"
	"net/http"

	"github.com/rs/zerolog/log"
)

var configPage = template.Must(template.New("config").Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Configuração WhatsApp - Bot Outubro Rosa</title>
    <script src="https://unpkg.com/vue@3/dist/vue.global.js"></script>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; background-color: #f5f5f5; }
        .container { max-width: 600px; margin: 0 auto; background: white; padding: 20px; border-radius: 8px; box-shadow: 0 2px 10px rgba(0,0,0,0.1); }
        h1 { color: #25D366; text-align: center; }
        .status { padding: 15px; margin: 20px 0; border-radius: 5px; }
        .connected { background-color: #d4edda; border: 1px solid #c3e6cb; color: #155724; }
        .disconnected { background-color: #f8d7da; border: 1px solid #f5c6cb; color: #721c24; }
        .qr-container { text-align: center; margin: 20px 0; }
        .qr-code { max-width: 300px; height: auto; border: 2px solid #25D366; border-radius: 5px; }
        .info { background-color: #e9ecef; padding: 15px; border-radius: 5px; margin: 10px 0; }
        .info p { margin: 5px 0; }
        .btn { background-color: #dc3545; color: white; border: none; padding: 12px 24px; border-radius: 5px; cursor: pointer; font-size: 16px; margin: 5px; }
        .btn:hover { background-color: #c82333; }
        .btn:disabled { background-color: #6c757d; cursor: not-allowed; }
        .loading { color: #666; margin-top: 10px; }
        .loading-container { text-align: center; padding: 20px; }
        .spinner {
            border: 4px solid #f3f3f3;
            border-top: 4px solid #25D366;
            border-radius: 50%;
            width: 40px;
            height: 40px;
            animation: spin 1s linear infinite;
            margin: 0 auto 15px;
        }
        .loading-text { color: #666; font-size: 14px; margin-top: 10px; }
        @keyframes spin {
            0% { transform: rotate(0deg); }
            100% { transform: rotate(360deg); }
        }
        .fade-enter-active, .fade-leave-active { transition: opacity 0.3s; }
        .fade-enter-from, .fade-leave-to { opacity: 0; }
    </style>
</head>
<body>
    <div id="app" class="container">
        <h1>Configuração WhatsApp</h1>

        <div :class="['status', status.isConnected ? 'connected' : 'disconnected']">
            <strong v-if="status.isConnected">✅ Conectado</strong>
            <strong v-else-if="!status.isConnected && status.qrCode">📱 Gerando QR Code...</strong>
            <strong v-else>⏳ Aguardando geração do QR Code...</strong>
        </div>

        <transition name="fade">
            <div v-if="!status.isConnected && status.qrCode" class="qr-container">
                <p><strong>Escaneie o QR Code abaixo com o WhatsApp:</strong></p>
                <img :src="status.qrCode" alt="QR Code WhatsApp" class="qr-code">
            </div>
            <div v-else-if="!status.isConnected && !status.qrCode" class="qr-container">
                <div class="loading-container">
                    <div class="spinner"></div>
                    <p><strong>Aguarde, gerando QR Code...</strong></p>
                    <p class="loading-text">Isso pode levar alguns segundos</p>
                </div>
            </div>
        </transition>

        <transition name="fade">
            <div v-if="status.isConnected" class="info">
                <p><strong>📱 Informações da Conexão:</strong></p>
                <p><strong>Número:</strong> +{{"{{"}} status.connectedNumber {{"}}"}}</p>
                <p><strong>Dispositivo:</strong> WhatsApp Web</p>
                <p><strong>Status:</strong> Ativo e respondendo mensagens</p>
            </div>
            <div v-else class="info">
                <p>O WhatsApp não está conectado. Escaneie o QR Code acima para conectar.</p>
            </div>
        </transition>

        <button v-if="status.isConnected" class="btn" @click="disconnect" :disabled="disconnecting">
            🔌 Desconectar e Limpar Cache
        </button>

        <div v-if="disconnecting" class="loading">
            Desconectando...
        </div>
    </div>

    <script>
        const { createApp, ref, onMounted, onUnmounted } = Vue;
        const token = {{.Token}};

        createApp({
            setup() {
                const status = ref({{.Status}});
                const disconnecting = ref(false);
                const updateTimer = ref(null);

                const updateStatus = async () => {
                    try {
                        const response = await fetch('/status?token=' + encodeURIComponent(token));
                        const newStatus = await response.json();
                        if (JSON.stringify(newStatus) !== JSON.stringify(status.value)) {
                            status.value = newStatus;
                        }
                    } catch (error) {
                        console.error('Erro ao atualizar status:', error);
                    }
                };

                const disconnect = async () => {
                    if (!confirm('⚠️ Tem certeza que deseja desconectar o WhatsApp?\n\nIsso irá remover a conexão e limpar o cache. Você precisará escanear o QR Code novamente para reconectar.')) {
                        return;
                    }

                    disconnecting.value = true;

                    try {
                        const response = await fetch('/disconnect?token=' + encodeURIComponent(token), {
                            method: 'POST'
                        });

                        if (response.ok) {
                            await updateStatus();
                        } else {
                            alert('❌ Erro ao desconectar. Tente novamente.');
                        }
                    } catch (error) {
                        alert('❌ Erro de rede. Tente novamente.');
                    } finally {
                        disconnecting.value = false;
                    }
                };

                const pollingInterval = () => {
                    if (!status.value.isConnected && status.value.qrCode) {
                        return 3000;
                    } else if (!status.value.isConnected) {
                        return 5000;
                    }
                    return 30000;
                };

                const scheduleNextUpdate = () => {
                    updateTimer.value = setTimeout(() => {
                        updateStatus().then(scheduleNextUpdate);
                    }, pollingInterval());
                };

                onMounted(scheduleNextUpdate);
                onUnmounted(() => {
                    if (updateTimer.value) {
                        clearTimeout(updateTimer.value);
                    }
                });

                return { status, disconnecting, disconnect };
            }
        }).mount('#app');
    </script>
</body>
</html>`))

type configPageData struct {
	Token  string
	Status template.JS
}

// ConfigPage serves the operator dashboard. The page polls /status with the
// same token it was opened with, so the initial projection is only a seed.
func (h *OperatorHandler) ConfigPage(w http.ResponseWriter, r *http.Request) {
	status, err := json.Marshal(h.session.GetStatus())
	if err != nil {
		http.Error(w, "Erro interno", http.StatusInternalServerError)
		return
	}

	data := configPageData{
		Token:  r.URL.Query().Get("token"),
		Status: template.JS(status),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := configPage.Execute(w, data); err != nil {
		log.Error().Err(err).Msg("failed to render config page")
	}
}
