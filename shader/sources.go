package shader

// DefaultVertex is the fixed vertex stage. It is never user editable: it
// draws the full-canvas quad, applies the mirror sign to x and forwards the
// texture coordinate.
const DefaultVertex = `#version 300 es
layout(location = 0) in vec2 a_position;
layout(location = 1) in vec2 a_texcoord;
out vec2 v_texcoord;
uniform float u_mirror;

void main() {
  gl_Position = vec4(a_position.x * u_mirror, a_position.y, 0.0, 1.0);
  v_texcoord = a_texcoord;
}
`

// DefaultFragment is the editable starting point shown to the user.
const DefaultFragment = `#version 300 es
precision mediump float;

in vec2 v_texcoord;
out vec4 fragColor;

uniform vec2 u_resolution;
uniform float u_time;
uniform vec2 u_leftEye;
uniform vec2 u_rightEye;
uniform vec2 u_mouth;
uniform sampler2D u_texture;

float interference(vec2 st, vec2 p1, vec2 p2) {
    float d1 = distance(st, p1);
    float d2 = distance(st, p2);
    float wave1 = cos(pow(d1, 0.5) * 100.0 + u_time / 200.) / 2.0 + 0.5;
    wave1 *= smoothstep(0.75, 0.0, d1);
    float wave2 = cos(pow(d2, 0.5) * 100.0 + u_time / 200.) / 2.0 + 0.5;
    wave2 *= smoothstep(0.75, 0.0, d2);
    return wave1 + wave2;
}

vec4 flare(vec2 st, vec2 p) {
  vec4 baseGlow = smoothstep(
    vec4(0.065, 0.06, 0.07, 0.08),
    vec4(0.005),
    vec4(distance(st, p))
  );

  float h = length((st - p) * vec2(5.0, 50.0));
  float v = length((st - p) * vec2(150.0, 15.0));
  vec4 handles = vec4(0.05)/(h*h) + vec4(0.05)/(v*v);

  return baseGlow + min(handles, vec4(0.5));
}

vec4 landmarks(vec2 st) {
  float r = 0.01;
  float d = min(
    min(distance(st, u_leftEye / u_resolution), distance(st, u_rightEye / u_resolution)),
    distance(st, u_mouth / u_resolution)
  );
  return vec4(0.0, 1.0, 0.4, 1.0) * smoothstep(r, r * 0.5, d);
}

void main() {
  vec2 st = gl_FragCoord.xy / u_resolution;
  vec2 leftEye = u_leftEye / u_resolution;
  vec2 rightEye = u_rightEye / u_resolution;

  vec4 color = texture(u_texture, v_texcoord);

  // Add some rad light flares
  // color += flare(st, leftEye);
  // color += flare(st, rightEye);

  /* Add some psychic waves */
  // float i = interference(st, leftEye, rightEye);
  // color += smoothstep(0.0, 1.0, i) * vec4(0.6, 0.0, 0.8, 1.0);

  /* Show the tracked points */
  // color += landmarks(st);

  fragColor = color;
}
`

