// Package shader holds the GLSL ES 3.00 sources of the ripple programs.
// Desktop devices translate them before compiling.
package shader

// --- Simulation passes ---

// QuadVertex maps the full-screen quad to texture space for the simulation passes.
const QuadVertex = `#version 300 es
precision highp float;

layout(location = 0) in vec2 vertex;
out vec2 coord;

void main() {
    coord = vertex * 0.5 + 0.5;
    gl_Position = vec4(vertex, 0.0, 1.0);
}
`

// DropFragment adds a raised-cosine bump to the height channel.
const DropFragment = `#version 300 es
precision highp float;

const float PI = 3.141592653589793;
uniform sampler2D heightField;
uniform vec2 center;
uniform float radius;
uniform float strength;

in vec2 coord;
out vec4 fragColor;

void main() {
    vec4 info = texture(heightField, coord);

    float drop = max(0.0, 1.0 - length(center * 0.5 + 0.5 - coord) / radius);
    drop = 0.5 - cos(drop * PI) * 0.5;

    info.r += drop * strength;
    fragColor = info;
}
`

// UpdateFragment advances the field one step: r = height, g = velocity.
const UpdateFragment = `#version 300 es
precision highp float;

uniform sampler2D heightField;
uniform vec2 delta;

in vec2 coord;
out vec4 fragColor;

void main() {
    vec4 info = texture(heightField, coord);

    vec2 dx = vec2(delta.x, 0.0);
    vec2 dy = vec2(0.0, delta.y);

    float average = (
        texture(heightField, coord - dx).r +
        texture(heightField, coord - dy).r +
        texture(heightField, coord + dx).r +
        texture(heightField, coord + dy).r
    ) * 0.25;

    info.g += (average - info.r) * 2.0;
    info.g *= 0.995;
    info.r += info.g;

    fragColor = info;
}
`

// --- Compositor ---

// RenderVertex maps the quad onto the visible part of the background and keeps
// the height field square regardless of the canvas aspect.
const RenderVertex = `#version 300 es
precision highp float;

layout(location = 0) in vec2 vertex;
uniform vec2 topLeft;
uniform vec2 bottomRight;
uniform vec2 containerRatio;

out vec2 ripplesCoord;
out vec2 backgroundCoord;

void main() {
    backgroundCoord = mix(topLeft, bottomRight, vertex * 0.5 + 0.5);
    backgroundCoord.y = 1.0 - backgroundCoord.y;

    ripplesCoord = vec2(vertex.x, -vertex.y) * containerRatio * 0.5 + 0.5;
    gl_Position = vec4(vertex.x, -vertex.y, 0.0, 1.0);
}
`

// RenderFragment refracts the background along the height gradient and adds
// a specular highlight.
const RenderFragment = `#version 300 es
precision highp float;

uniform sampler2D samplerBackground;
uniform sampler2D samplerRipples;
uniform vec2 delta;
uniform float perturbance;

in vec2 ripplesCoord;
in vec2 backgroundCoord;
out vec4 fragColor;

void main() {
    float height = texture(samplerRipples, ripplesCoord).r;
    float heightX = texture(samplerRipples, vec2(ripplesCoord.x + delta.x, ripplesCoord.y)).r;
    float heightY = texture(samplerRipples, vec2(ripplesCoord.x, ripplesCoord.y + delta.y)).r;

    vec3 dx = vec3(delta.x, heightX - height, 0.0);
    vec3 dy = vec3(0.0, heightY - height, delta.y);
    vec2 offset = -normalize(cross(dy, dx)).xz;
    float specular = pow(max(0.0, dot(offset, normalize(vec2(-0.6, 1.0)))), 4.0);

    fragColor = texture(samplerBackground, backgroundCoord + offset * perturbance) + specular;
}
`

// QuadVertices is the full-screen quad drawn as a 4-vertex triangle fan.
var QuadVertices = []float32{
	-1, -1,
	1, -1,
	1, 1,
	-1, 1,
}
