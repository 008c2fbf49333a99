// Package mqtt provides MQTT communication capabilities for the bot.
// It supports publish/subscribe patterns with request/response functionality.
package mqtt

import (
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/PancyStudios/JazzBotGo/pkg/logger"
)

// TopicPrefix is the root of every topic the bot uses
const TopicPrefix = "jazz"

// Request represents an MQTT request message
type Request struct {
	CorrelationID string `json:"correlationId"`
	Payload       any    `json:"payload,omitempty"`
}

// Response represents an MQTT response message
type Response struct {
	CorrelationID string `json:"correlationId"`
	Data          any    `json:"data"`
	Error         string `json:"error,omitempty"`
}

// Publisher sends a JSON payload to a topic
type Publisher interface {
	Publish(topic string, payload any) error
}

// Communicator handles MQTT communication
type Communicator struct {
	client           mqtt.Client
	responseHandlers map[string]func(Response)
	mu               sync.RWMutex
	clientID         string
}

// NewCommunicator connects to the broker. Connection failures are logged;
// paho keeps retrying in the background.
func NewCommunicator(host, port, username, password, clientID string) *Communicator {
	mc := &Communicator{
		responseHandlers: make(map[string]func(Response)),
		clientID:         clientID,
	}

	uniqueID := fmt.Sprintf("%s_%s", clientID, uuid.New().String())

	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%s", host, port)).
		SetClientID(uniqueID).
		SetUsername(username).
		SetPassword(password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(c mqtt.Client) {
			logger.Success(fmt.Sprintf("Conectado al broker MQTT como %s", clientID), "MQTT")
		}).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			logger.Error(fmt.Sprintf("Conexión MQTT perdida: %v", err), "MQTT")
		})

	mc.client = mqtt.NewClient(opts)

	token := mc.client.Connect()
	if token.WaitTimeout(10*time.Second) && token.Error() != nil {
		logger.Error(fmt.Sprintf("Error de conexión MQTT: %v", token.Error()), "MQTT")
	}

	return mc
}

// Destroy closes the MQTT connection
func (mc *Communicator) Destroy() {
	if mc.client != nil && mc.client.IsConnected() {
		mc.client.Disconnect(250)
		logger.System("Conexión MQTT cerrada exitosamente.", "MQTT")
	} else {
		logger.Warn("El cliente MQTT no estaba conectado, no se necesita cerrar.", "MQTT")
	}
}

// IsConnected returns true if connected to the broker
func (mc *Communicator) IsConnected() bool {
	return mc.client != nil && mc.client.IsConnected()
}

// Publish sends a message to a topic
func (mc *Communicator) Publish(topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	token := mc.client.Publish(topic, 0, false, data)
	token.Wait()
	return token.Error()
}

// Request sends a request and waits for a response
func (mc *Communicator) Request(topic string, payload any, timeout time.Duration) (any, error) {
	correlationID := uuid.New().String()
	requestTopic := requestTopic(topic)
	responseTopic := responseTopic(topic, correlationID)

	responseChan := make(chan Response, 1)
	errChan := make(chan error, 1)

	mc.mu.Lock()
	mc.responseHandlers[correlationID] = func(response Response) {
		responseChan <- response
	}
	mc.mu.Unlock()

	defer func() {
		mc.mu.Lock()
		delete(mc.responseHandlers, correlationID)
		mc.mu.Unlock()
		mc.client.Unsubscribe(responseTopic)
	}()

	token := mc.client.Subscribe(responseTopic, 0, func(c mqtt.Client, msg mqtt.Message) {
		var response Response
		if err := json.Unmarshal(msg.Payload(), &response); err != nil {
			errChan <- err
			return
		}

		mc.mu.RLock()
		handler, exists := mc.responseHandlers[response.CorrelationID]
		mc.mu.RUnlock()

		if exists {
			handler(response)
		}
	})
	if token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}

	if err := mc.Publish(requestTopic, Request{CorrelationID: correlationID, Payload: payload}); err != nil {
		return nil, err
	}

	select {
	case response := <-responseChan:
		if response.Error != "" {
			return nil, fmt.Errorf("%s", response.Error)
		}
		return response.Data, nil
	case err := <-errChan:
		return nil, err
	case <-time.After(timeout):
		return nil, fmt.Errorf("la petición a '%s' ha expirado (timeout)", topic)
	}
}

// RequestHandler is a function type for handling MQTT requests
type RequestHandler func(payload map[string]any) (any, error)

// On registers a handler for a request topic
func (mc *Communicator) On(topic string, callback RequestHandler) {
	subscribed := requestTopic(topic)

	token := mc.client.Subscribe(subscribed, 0, func(c mqtt.Client, msg mqtt.Message) {
		actualTopic, response, ok := handleRequest(msg.Topic(), msg.Payload(), callback)
		if !ok {
			return
		}
		if err := mc.Publish(responseTopic(actualTopic, response.CorrelationID), response); err != nil {
			logger.Error(fmt.Sprintf("Error publishing MQTT response: %v", err), "MQTT")
		}
	})

	if token.Wait() && token.Error() != nil {
		logger.Error(fmt.Sprintf("Error subscribing to topic %s: %v", subscribed, token.Error()), "MQTT")
	}
}

// handleRequest decodes a request, runs callback and builds the response
func handleRequest(topic string, payload []byte, callback RequestHandler) (string, Response, bool) {
	var request Request
	if err := json.Unmarshal(payload, &request); err != nil {
		logger.Error(fmt.Sprintf("Error parsing MQTT request: %v", err), "MQTT")
		return "", Response{}, false
	}

	actualTopic := strings.TrimPrefix(topic, TopicPrefix+"/request/")

	payloadMap := make(map[string]any)
	if pm, ok := request.Payload.(map[string]any); ok {
		payloadMap = pm
	}
	payloadMap["_topic"] = actualTopic

	data, err := callback(payloadMap)
	if err != nil {
		return actualTopic, Response{CorrelationID: request.CorrelationID, Error: err.Error()}, true
	}
	return actualTopic, Response{CorrelationID: request.CorrelationID, Data: data}, true
}

// Subscribe subscribes to a topic with a message handler
func (mc *Communicator) Subscribe(topic string, handler func(topic string, payload []byte)) error {
	token := mc.client.Subscribe(topic, 0, func(c mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	token.Wait()
	return token.Error()
}

// Unsubscribe unsubscribes from a topic
func (mc *Communicator) Unsubscribe(topic string) error {
	token := mc.client.Unsubscribe(topic)
	token.Wait()
	return token.Error()
}

func requestTopic(topic string) string {
	return fmt.Sprintf("%s/request/%s", TopicPrefix, topic)
}

func responseTopic(topic, correlationID string) string {
	return fmt.Sprintf("%s/response/%s/%s", TopicPrefix, topic, correlationID)
}
